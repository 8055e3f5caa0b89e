package model

// The closed err_title vocabulary (§3 invariants). Reports filter by
// equality on this field, so no other value may ever be written.
const (
	ErrTitleNodeConnFailure   = "Node connection failure"
	ErrTitleClusterUnstable   = "Cluster status is unstable"
	ErrTitleUrgentAlarm       = "Emergency indicator alarm dispatch"
)

// IncidentRecord is written to the sink for every detected anomaly.
type IncidentRecord struct {
	ClusterName string `json:"cluster_name"`
	Host        string `json:"host"`
	IndexName   string `json:"index_name"`
	Timestamp   string `json:"timestamp"`
	ErrTitle    string `json:"err_title"`
	ErrDetail   string `json:"err_detail"`
}
