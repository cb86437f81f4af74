package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billdomain "github.com/tablyhq/tably/internal/bill/domain"
	billperiodservice "github.com/tablyhq/tably/internal/billperiod/service"
	"github.com/tablyhq/tably/internal/clock"
	"github.com/tablyhq/tably/internal/config"
	"github.com/tablyhq/tably/internal/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRecoverStaleProcessing(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:scheduler_stale?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	periodSvc := billperiodservice.NewService(billperiodservice.Params{
		DB: gdb, Log: zap.NewNop(), GenID: node, Clock: clk,
	})
	sched := New(Params{
		DB: gdb, Log: zap.NewNop(), Clock: clk,
		Config:    config.Config{StaleProcessingAfter: 120},
		PeriodSvc: periodSvc,
	})

	billID := node.Generate()
	stale := billdomain.BillItemPrintLog{
		ID: node.Generate(), BillID: billID, BillItemID: node.Generate(),
		PrinterID: node.Generate(), Type: billdomain.PrintLogStd,
		Status:    billdomain.PrintLogProcessing,
		CreatedAt: clk.Now().Add(-10 * time.Minute),
		UpdatedAt: clk.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, gdb.Create(&stale).Error)

	fresh := billdomain.BillItemPrintLog{
		ID: node.Generate(), BillID: billID, BillItemID: node.Generate(),
		PrinterID: node.Generate(), Type: billdomain.PrintLogStd,
		Status:    billdomain.PrintLogProcessing,
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}
	require.NoError(t, gdb.Create(&fresh).Error)

	staleCall := billdomain.BillCallPrintLog{
		ID: node.Generate(), BillID: billID, BillCallLogID: node.Generate(),
		PrinterID: node.Generate(),
		Status:    billdomain.PrintLogProcessing,
		CreatedAt: clk.Now().Add(-10 * time.Minute),
		UpdatedAt: clk.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, gdb.Create(&staleCall).Error)

	require.NoError(t, sched.RecoverStaleProcessing(context.Background()))

	var recovered billdomain.BillItemPrintLog
	require.NoError(t, gdb.First(&recovered, "id = ?", stale.ID).Error)
	assert.Equal(t, billdomain.PrintLogErrored, recovered.Status)
	assert.Equal(t, "recovered after restart", recovered.Detail)
	assert.True(t, recovered.Status.Retryable())

	var untouched billdomain.BillItemPrintLog
	require.NoError(t, gdb.First(&untouched, "id = ?", fresh.ID).Error)
	assert.Equal(t, billdomain.PrintLogProcessing, untouched.Status)

	var recoveredCall billdomain.BillCallPrintLog
	require.NoError(t, gdb.First(&recoveredCall, "id = ?", staleCall.ID).Error)
	assert.Equal(t, billdomain.PrintLogErrored, recoveredCall.Status)
}

func TestRefreshCurrentPeriodRollup_NoOpenPeriod(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:scheduler_noperiod?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	periodSvc := billperiodservice.NewService(billperiodservice.Params{
		DB: gdb, Log: zap.NewNop(), GenID: node, Clock: clk,
	})
	sched := New(Params{
		DB: gdb, Log: zap.NewNop(), Clock: clk,
		Config:    config.Config{StaleProcessingAfter: 120},
		PeriodSvc: periodSvc,
	})

	assert.NoError(t, sched.RefreshCurrentPeriodRollup(context.Background()))
}
