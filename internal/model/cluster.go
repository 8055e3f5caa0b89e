package model

// ClusterDescriptor is the immutable per-cluster configuration loaded once
// at startup: logical name, ordered host endpoints, credentials, and the
// four index-name prefixes, one per stream.
type ClusterDescriptor struct {
	ClusterName            string   `mapstructure:"cluster_name" toml:"cluster_name"`
	Hosts                   []string `mapstructure:"hosts" toml:"hosts"`
	EsID                    string   `mapstructure:"es_id" toml:"es_id"`
	EsPW                    string   `mapstructure:"es_pw" toml:"es_pw"`
	IndexPattern            string   `mapstructure:"index_pattern" toml:"index_pattern"`
	PerIndexPattern         string   `mapstructure:"per_index_pattern" toml:"per_index_pattern"`
	UrgentIndexPattern      string   `mapstructure:"urgent_index_pattern" toml:"urgent_index_pattern"`
	ErrLogIndexPattern      string   `mapstructure:"err_log_index_pattern" toml:"err_log_index_pattern"`
}

// SinkDescriptor is a ClusterDescriptor plus the connection-pool size used
// only by the sink (monitoring) cluster.
type SinkDescriptor struct {
	ClusterDescriptor `mapstructure:",squash"`
	PoolCnt           int `mapstructure:"pool_cnt" toml:"pool_cnt"`
}

// HostIPs returns the left-of-':' portion of every configured host, per the
// urgent evaluator's host-matching contract (§4.4). Hosts without a ':' are
// returned unchanged.
func (c ClusterDescriptor) HostIPs() []string {
	ips := make([]string, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		ip := h
		for i := 0; i < len(h); i++ {
			if h[i] == ':' {
				ip = h[:i]
				break
			}
		}
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}
