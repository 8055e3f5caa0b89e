package notify

import (
	"fmt"
	"strings"

	"github.com/crlsmrls/esmonitor/internal/model"
)

// NodeFault is emitted when per_node_ping_all finds unreachable hosts.
type NodeFault struct {
	ClusterName  string
	Hosts        []string
	TemplatePath string
}

func (m NodeFault) ChatText() string {
	return fmt.Sprintf("[%s] Node connection failure: %s", m.ClusterName, strings.Join(m.Hosts, ", "))
}

func (m NodeFault) HTMLTemplatePath() string { return m.TemplatePath }

func (m NodeFault) HTMLSubstitutions() map[string]string {
	return map[string]string{
		"cluster_name": m.ClusterName,
		"hosts":        strings.Join(m.Hosts, ", "),
	}
}

// UnstableHealth is emitted when cluster_health reports non-GREEN status.
type UnstableHealth struct {
	ClusterName  string
	Status       string
	Indices      []string
	TemplatePath string
}

func (m UnstableHealth) ChatText() string {
	return fmt.Sprintf("[%s] Cluster status is %s: %s", m.ClusterName, m.Status, strings.Join(m.Indices, ", "))
}

func (m UnstableHealth) HTMLTemplatePath() string { return m.TemplatePath }

func (m UnstableHealth) HTMLSubstitutions() map[string]string {
	return map[string]string{
		"cluster_name": m.ClusterName,
		"status":       m.Status,
		"indices":      strings.Join(m.Indices, ", "),
	}
}

// ReportSummary is emitted once per completed report run.
type ReportSummary struct {
	ClusterName      string
	Kind             string // "Daily", "Weekly", "Monthly", "Yearly"
	Count            int64
	AlarmPeriodCount int
	ChartPath        string
	TemplatePath     string
}

func (m ReportSummary) ChatText() string {
	return fmt.Sprintf("[%s] %s report: %d incidents across %d alarm period(s)",
		m.ClusterName, m.Kind, m.Count, m.AlarmPeriodCount)
}

func (m ReportSummary) HTMLTemplatePath() string { return m.TemplatePath }

func (m ReportSummary) HTMLSubstitutions() map[string]string {
	return map[string]string{
		"cluster_name":       m.ClusterName,
		"report_kind":        m.Kind,
		"count":              fmt.Sprintf("%d", m.Count),
		"alarm_period_count": fmt.Sprintf("%d", m.AlarmPeriodCount),
		"chart_path":         m.ChartPath,
	}
}

// UrgentBreachMessage is emitted when the Urgent Evaluator reports one or
// more breaches.
type UrgentBreachMessage struct {
	ClusterName  string
	Breaches     []model.UrgentBreach
	TemplatePath string
}

func (m UrgentBreachMessage) ChatText() string {
	parts := make([]string, 0, len(m.Breaches))
	for _, b := range m.Breaches {
		parts = append(parts, fmt.Sprintf("%s:%s=%s", b.Host, b.MetricName, b.ValueStr))
	}
	return fmt.Sprintf("[%s] Emergency indicator alarm dispatch: %s", m.ClusterName, strings.Join(parts, "; "))
}

func (m UrgentBreachMessage) HTMLTemplatePath() string { return m.TemplatePath }

func (m UrgentBreachMessage) HTMLSubstitutions() map[string]string {
	parts := make([]string, 0, len(m.Breaches))
	for _, b := range m.Breaches {
		parts = append(parts, fmt.Sprintf("%s: %s = %s", b.Host, b.MetricName, b.ValueStr))
	}
	return map[string]string{
		"cluster_name": m.ClusterName,
		"breaches":     strings.Join(parts, "<br/>"),
	}
}
