package wire

import "tenantsync/internal/service"

// Services synctl 各命令使用的服务
type Services struct {
	Ledger    service.SyncLogService
	Sync      service.SyncService
	Conflict  service.ConflictService
	Integrity service.IntegrityService
	Monitor   service.MonitorService
}
