package model

// ReportSection is one of the four {daily,weekly,monthly,yearly}_report
// TOML sub-sections.
type ReportSection struct {
	Enabled      bool   `mapstructure:"enabled" toml:"enabled"`
	CronSchedule string `mapstructure:"cron_schedule" toml:"cron_schedule"`
	ImgPath      string `mapstructure:"img_path" toml:"img_path"`
}

// SMTPConfig carries the stored-procedure SQL connection details.
type SMTPConfig struct {
	DriverName       string `mapstructure:"driver_name" toml:"driver_name"`
	DataSourceName   string `mapstructure:"data_source_name" toml:"data_source_name"`
	StoredProcedure  string `mapstructure:"stored_procedure" toml:"stored_procedure"`
}

// TelegramConfig carries the chat channel's bot credentials.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" toml:"bot_token"`
	ChatID   string `mapstructure:"chat_id" toml:"chat_id"`
}

// SlackConfig carries the team-chat channel's bot credentials.
type SlackConfig struct {
	BotToken  string `mapstructure:"bot_token" toml:"bot_token"`
	ChannelID string `mapstructure:"channel_id" toml:"channel_id"`
}

// UseCaseConfig selects prod/dev notification mode.
type UseCaseConfig struct {
	UseCase string `mapstructure:"use_case" toml:"use_case"`
}

// SystemConfig is the top-level TOML document: smtp/telegram/slack/usecase/
// monitor_es plus the four report sub-sections (§6).
type SystemConfig struct {
	SMTP          SMTPConfig        `mapstructure:"smtp" toml:"smtp"`
	Telegram      TelegramConfig    `mapstructure:"telegram" toml:"telegram"`
	Slack         SlackConfig       `mapstructure:"slack" toml:"slack"`
	UseCase       UseCaseConfig     `mapstructure:"usecase" toml:"usecase"`
	MonitorES     SinkDescriptor    `mapstructure:"monitor_es" toml:"monitor_es"`
	DailyReport   ReportSection     `mapstructure:"daily_report" toml:"daily_report"`
	WeeklyReport  ReportSection     `mapstructure:"weekly_report" toml:"weekly_report"`
	MonthlyReport ReportSection     `mapstructure:"monthly_report" toml:"monthly_report"`
	YearlyReport  ReportSection     `mapstructure:"yearly_report" toml:"yearly_report"`
}

// ClusterConfigFile is the source-cluster descriptor list document.
type ClusterConfigFile struct {
	Clusters []ClusterDescriptor `mapstructure:"clusters" toml:"clusters"`
}

// IndexWatch pairs a configured per-index-stats collection target with the
// cluster it belongs to.
type IndexWatch struct {
	ClusterName string `mapstructure:"cluster_name" toml:"cluster_name"`
	IndexName   string `mapstructure:"index_name" toml:"index_name"`
}

// IndexWatchConfig is the per-index metric collection watch-list document.
type IndexWatchConfig struct {
	Index []IndexWatch `mapstructure:"index" toml:"index"`
}

// UrgentConfigFile is the urgent-threshold list document.
type UrgentConfigFile struct {
	Urgent []UrgentThreshold `mapstructure:"urgent" toml:"urgent"`
}

// Receiver is one configured email recipient.
type Receiver struct {
	EmailID string `mapstructure:"email_id" toml:"email_id"`
}

// ReceiversConfig is the email recipient list document.
type ReceiversConfig struct {
	Receivers []Receiver `mapstructure:"receivers" toml:"receivers"`
}
