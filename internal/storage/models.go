package storage

import "time"

// RunRecord 一次运行的汇总记录
type RunRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	Target        string `gorm:"type:text"`
	URL           string `gorm:"type:text"`
	StartedAt     time.Time
	FinishedAt    *time.Time
	StopReason    string `gorm:"size:16"`
	Total         int
	Completed     int
	Enrolled      int
	Rejected      int
	TimedOut      int
	TriggerFailed int
	ScanRounds    int
	ElapsedMs     int64
	Items         []ItemRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// ItemRecord 单个优惠的处理结果
type ItemRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"size:36;not null;index"`
	Label      string `gorm:"type:text;not null;index"`
	Outcome    string `gorm:"size:16;not null"`
	Attempts   int
	DurationMs int64
	SettledAt  time.Time
}
