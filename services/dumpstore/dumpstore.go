// Package dumpstore keeps a bounded history of IR dumps in SQLite.
package dumpstore

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yorkir-go/bus"
	"yorkir-go/errcode"
	"yorkir-go/services/climate"
	"yorkir-go/types"
	"yorkir-go/x/logx"
)

// DumpRecord is one dump event; empty columns mean that direction had no
// frame yet.
type DumpRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	TXBytes   string    `gorm:"type:varchar(32)" json:"tx_bytes,omitempty"`
	TXPulses  string    `gorm:"type:text" json:"tx_pulses,omitempty"`
	TXAt      int64     `json:"tx_at,omitempty"`
	RXBytes   string    `gorm:"type:varchar(32)" json:"rx_bytes,omitempty"`
	RXPulses  string    `gorm:"type:text" json:"rx_pulses,omitempty"`
	RXAt      int64     `json:"rx_at,omitempty"`
}

type Store struct {
	db   *gorm.DB
	keep int
}

// Open opens (or creates) the database at path keeping at most keep rows.
func Open(path string, keep int) (*Store, error) {
	const op = "dumpstore.open"
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errcode.Wrap(errcode.NotReady, op, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errcode.Wrap(errcode.NotReady, op, err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&DumpRecord{}); err != nil {
		return nil, errcode.Wrap(errcode.Error, op, err)
	}
	if keep <= 0 {
		keep = 50
	}
	return &Store{db: db, keep: keep}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save appends d and prunes rows beyond the keep limit.
func (s *Store) Save(d types.DumpValue) (DumpRecord, error) {
	rec := DumpRecord{}
	if d.LastTX != nil {
		rec.TXBytes, rec.TXPulses, rec.TXAt = d.LastTX.Bytes, d.LastTX.Pulses.String(), d.LastTX.TS
	}
	if d.LastRX != nil {
		rec.RXBytes, rec.RXPulses, rec.RXAt = d.LastRX.Bytes, d.LastRX.Pulses.String(), d.LastRX.TS
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return rec, errcode.Wrap(errcode.Error, "dumpstore.save", err)
	}
	if int(rec.ID) > s.keep {
		if err := s.db.Where("id <= ?", int(rec.ID)-s.keep).Delete(&DumpRecord{}).Error; err != nil {
			logx.Warn("dumpstore: prune: %v", err)
		}
	}
	return rec, nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]DumpRecord, error) {
	var out []DumpRecord
	if err := s.db.Order("id desc").Limit(n).Find(&out).Error; err != nil {
		return nil, errcode.Wrap(errcode.Error, "dumpstore.recent", err)
	}
	return out, nil
}

// Run stores every climate dump event until ctx ends.
func (s *Store) Run(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(climate.TopicDump)
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			d, ok := m.Payload.(types.DumpValue)
			if !ok {
				continue
			}
			rec, err := s.Save(d)
			if err != nil {
				logx.Error("dumpstore: %v", err)
				continue
			}
			logx.Debug("dumpstore: saved dump %d", rec.ID)
		}
	}
}
