package model

// UrgentSample is a pre-existing sink document the Urgent Evaluator reads;
// this system never creates one. Field() dispatches by metric name per
// §4.4's name-to-value lookup, mirroring the original source's
// get_field_value match arm.
type UrgentSample struct {
	Host                 string  `json:"host"`
	Timestamp            string  `json:"timestamp"`
	NetworkReceived      float64 `json:"network_received"`
	NetworkTransmitted   float64 `json:"network_transmitted"`
	ProcessCount         float64 `json:"process_count"`
	RecvDroppedPackets   float64 `json:"recv_dropped_packets"`
	RecvErrorsPacket     float64 `json:"recv_errors_packet"`
	SendDroppedPackets   float64 `json:"send_dropped_packets"`
	SendErrorsPacket     float64 `json:"send_errors_packet"`
	SystemCPUUsage       float64 `json:"system_cpu_usage"`
	SystemDiskUsage      float64 `json:"system_disk_usage"`
	SystemMemoryUsage    float64 `json:"system_memory_usage"`
	TCPCloseWait         float64 `json:"tcp_close_wait"`
	TCPConnections       float64 `json:"tcp_connections"`
	TCPEstablished       float64 `json:"tcp_established"`
	TCPListen            float64 `json:"tcp_listen"`
	TCPTimewait          float64 `json:"tcp_timewait"`
	UDPSockets           float64 `json:"udp_sockets"`
}

// Field resolves metricName to its numeric value on this sample. An unknown
// name reports ok=false so the caller can log-and-skip rather than fail the
// evaluation (§4.4).
func (u UrgentSample) Field(metricName string) (float64, bool) {
	switch metricName {
	case "network_received":
		return u.NetworkReceived, true
	case "network_transmitted":
		return u.NetworkTransmitted, true
	case "process_count":
		return u.ProcessCount, true
	case "recv_dropped_packets":
		return u.RecvDroppedPackets, true
	case "recv_errors_packet":
		return u.RecvErrorsPacket, true
	case "send_dropped_packets":
		return u.SendDroppedPackets, true
	case "send_errors_packet":
		return u.SendErrorsPacket, true
	case "system_cpu_usage":
		return u.SystemCPUUsage, true
	case "system_disk_usage":
		return u.SystemDiskUsage, true
	case "system_memory_usage":
		return u.SystemMemoryUsage, true
	case "tcp_close_wait":
		return u.TCPCloseWait, true
	case "tcp_connections":
		return u.TCPConnections, true
	case "tcp_established":
		return u.TCPEstablished, true
	case "tcp_listen":
		return u.TCPListen, true
	case "tcp_timewait":
		return u.TCPTimewait, true
	case "udp_sockets":
		return u.UDPSockets, true
	default:
		return 0, false
	}
}

// UrgentThreshold is a (metric_name, limit) pair; a breach is
// sample.Field(metric_name) > limit (strict).
type UrgentThreshold struct {
	MetricName string  `mapstructure:"metric_name" toml:"metric_name"`
	Limit      float64 `mapstructure:"limit" toml:"limit"`
}

// UrgentBreach is emitted by the evaluator for every sample/threshold pair
// that trips.
type UrgentBreach struct {
	Host       string
	MetricName string
	ValueStr   string
}
