package tournament

// PayoutResult is one player's share of the prize pool.
type PayoutResult struct {
	PlayerID string
	Position int
	Amount   uint64
}

// ComputePayouts awards the prize pool per the payout structure's
// position/percentage table. groups is the finishing order, winner first;
// a group with more than one entry represents players tied at that rank
// (e.g. eliminated in the same hand), who share every position their tie
// consumes equally, with any rounding residue going to the first entry of
// the group (the tie's better-ranked member, as ordered by the caller).
func ComputePayouts(prizePool uint64, schedule []PayoutEntry, groups [][]string) []PayoutResult {
	bpsByPosition := make(map[int]uint64, len(schedule))
	for _, e := range schedule {
		bpsByPosition[e.Position] = e.PercentBps
	}

	var results []PayoutResult
	pos := 1
	for _, group := range groups {
		n := len(group)
		if n == 0 {
			continue
		}

		var totalBps uint64
		for p := pos; p < pos+n; p++ {
			totalBps += bpsByPosition[p]
		}

		totalAmount := prizePool * totalBps / 10000
		share := totalAmount / uint64(n)
		residue := totalAmount - share*uint64(n)

		for i, playerID := range group {
			amount := share
			if i == 0 {
				amount += residue
			}
			results = append(results, PayoutResult{PlayerID: playerID, Position: pos, Amount: amount})
		}
		pos += n
	}
	return results
}
