package model

import (
	"fmt"
	"time"
)

// HourlyRecord is one row of weather_hourly.
type HourlyRecord struct {
	City          string    `gorm:"column:city" json:"city"`
	Date          time.Time `gorm:"column:date;type:date" json:"date"`
	Hour          time.Time `gorm:"column:hour" json:"hour"`
	Temperature   float32   `gorm:"column:temperature" json:"temperature"`
	Precipitation float32   `gorm:"column:precipitation" json:"precipitation"`
	WindSpeed     float32   `gorm:"column:wind_speed" json:"wind_speed"`
	WindDirection int32     `gorm:"column:wind_direction" json:"wind_direction"`
	CreatedAt     time.Time `gorm:"column:created_at;<-:false" json:"created_at"`
}

// TableName specifies the table name for HourlyRecord.
func (HourlyRecord) TableName() string {
	return "weather_hourly"
}

// DailySummary is one row of weather_daily.
type DailySummary struct {
	City               string    `gorm:"column:city" json:"city"`
	Date               time.Time `gorm:"column:date;type:date" json:"date"`
	TempMin            float32   `gorm:"column:temp_min" json:"temp_min"`
	TempMax            float32   `gorm:"column:temp_max" json:"temp_max"`
	TempAvg            float32   `gorm:"column:temp_avg" json:"temp_avg"`
	PrecipitationTotal float32   `gorm:"column:precipitation_total" json:"precipitation_total"`
	// WindMax is always 0: the daily request carries no wind field.
	WindMax   float32   `gorm:"column:wind_max" json:"wind_max"`
	CreatedAt time.Time `gorm:"column:created_at;<-:false" json:"created_at"`
}

// TableName specifies the table name for DailySummary.
func (DailySummary) TableName() string {
	return "weather_daily"
}

// BroadcastTally counts the outcome of one broadcast.
type BroadcastTally struct {
	Delivered int
	Failed    int
}

func (t BroadcastTally) String() string {
	return fmt.Sprintf("%d delivered, %d failed", t.Delivered, t.Failed)
}

// Subscriber is one chat that receives forecasts.
type Subscriber struct {
	ChatID    int64     `gorm:"column:chat_id;primaryKey;autoIncrement:false" json:"chat_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for Subscriber.
func (Subscriber) TableName() string {
	return "telegram_subscribers"
}

// UpdateOffset stores the next getUpdates offset for a bot.
type UpdateOffset struct {
	Bot       string    `gorm:"column:bot;primaryKey" json:"bot"`
	Offset    int       `gorm:"column:update_offset" json:"offset"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for UpdateOffset.
func (UpdateOffset) TableName() string {
	return "telegram_offsets"
}
