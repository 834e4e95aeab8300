package common

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SmallModel is gorm.Model but without the deleted_at column,
// which is unindexed and therefore slow to filter on
type SmallModel struct {
	ID        uint `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GORMLogger struct{}

func (g *GORMLogger) Print(params ...interface{}) {
	logrus.WithField("stck", "...").Error(params...)
}
