package table

// drainQueueLocked applies every deferred QueueItem in FIFO order. Each
// kind is written so that applying it twice has no additional effect, and
// a queued item whose precondition no longer holds (e.g. the player already
// left) is silently discarded rather than erroring.
func (t *Table) drainQueueLocked() {
	items := t.queue
	t.queue = nil
	for _, item := range items {
		t.applyQueueItemLocked(item)
	}
}

func (t *Table) applyQueueItemLocked(item QueueItem) {
	switch item.Kind {
	case QueueSittingIn:
		if u, ok := t.users[item.PlayerID]; ok {
			u.SittingOut = false
		}

	case QueueSittingOut:
		if u, ok := t.users[item.PlayerID]; ok {
			u.SittingOut = true
		}

	case QueueDeposit:
		if u, ok := t.users[item.PlayerID]; ok {
			u.Chips += item.Deposit
		}

	case QueueRemoveUser, QueueLeaveTableToMove:
		t.removePlayerLocked(item.PlayerID)

	case QueueUpdateBlinds:
		_ = t.applyBlindsLocked(item.NewSmallBlind, item.NewBigBlind, item.NewAnte)

	case QueuePauseTable:
		t.paused = true

	case QueuePauseTableForAddon:
		t.paused = true
		t.pausedForAddon = item.AddonDuration
	}
}
