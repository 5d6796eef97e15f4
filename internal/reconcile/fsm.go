package reconcile

import "github.com/razherana/s5-web-4-carte/internal/model"

// Trigger is what happened to a record.
type Trigger string

const (
	TriggerCreate Trigger = "create"
	TriggerUpdate Trigger = "update"
	TriggerDelete Trigger = "delete"
	TriggerStatus Trigger = "status"
	TriggerSweep  Trigger = "sweep"
)

// Outcome is where a record ends up.  Purge means the local row is
// removed; State is meaningless then.
type Outcome struct {
	State model.SyncState
	Purge bool
}

// Next is the single source of truth for sync-state transitions.  pre is
// the state before the mutation (empty for create) and remoteOK tells
// whether the matching remote call was made and succeeded.  Being
// offline is the same as a failed remote call.
//
//	create            remoteOK → synced, else created
//	update, status    remoteOK → synced, else synced → updated, other states unchanged
//	delete            created → purge; remoteOK → purge; else deleted
//	sweep             remoteOK → synced (deleted → purge), else unchanged
func Next(t Trigger, pre model.SyncState, remoteOK bool) Outcome {
	switch t {
	case TriggerCreate:
		if remoteOK {
			return Outcome{State: model.SyncSynced}
		}
		return Outcome{State: model.SyncCreated}

	case TriggerUpdate, TriggerStatus:
		if remoteOK {
			return Outcome{State: model.SyncSynced}
		}
		if pre == model.SyncSynced {
			return Outcome{State: model.SyncUpdated}
		}
		return Outcome{State: pre}

	case TriggerDelete:
		if pre == model.SyncCreated || remoteOK {
			return Outcome{Purge: true}
		}
		return Outcome{State: model.SyncDeleted}

	case TriggerSweep:
		if !remoteOK {
			return Outcome{State: pre}
		}
		if pre == model.SyncDeleted {
			return Outcome{Purge: true}
		}
		return Outcome{State: model.SyncSynced}
	}
	return Outcome{State: pre}
}
