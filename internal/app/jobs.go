package app

import (
	"context"
	"os"
	"time"

	"github.com/cottonstock/invoicedesk/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
		return err
	}

	if spec := a.appConfig.Invoice.NormalizeCron; spec != "" {
		if _, err = a.sched.AddFunc(spec, a.SchedNormalizeTask); err != nil {
			zap.S().Errorf("init normalize job error %s", err.Error())
			return err
		}
	}

	a.sched.Start()
	return nil
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	// cpu percent * 100
	cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(cpuuse[0]*100))
	}

	meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("invoicedesk_cpuuse", int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("invoicedesk_memuse", int64(meminfo.RSS/1024/1024))
	}
}

// SchedNormalizeTask rewrites stored legacy records.
func (a *Application) SchedNormalizeTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	start := time.Now()
	res, err := a.RunNormalize(ctx)
	if err != nil {
		zap.L().Error("normalize sweep failed", zap.String("namespace", "invoice"), zap.Error(err))
		return
	}
	metrics.SetGauge("invoice_last_sweep_updated", res.Updated)
	zap.L().Info("normalize sweep finished",
		zap.String("namespace", "invoice"),
		zap.Int64("scanned", res.Scanned),
		zap.Int64("updated", res.Updated),
		zap.Int64("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)))
}
