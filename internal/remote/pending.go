package remote

// resubmitPending replays previously pending operations from the configured
// store on first connect. Each entry is resubmitted as a fresh submit request
// carrying the same payload, client identifier and prior submission
// bookkeeping. Malformed entries are skipped without aborting the batch.
func (r *Remote) resubmitPending() {
	if r.store == nil {
		return
	}

	entries, err := r.store.FetchPending()
	if err != nil {
		r.log.WithField("error", err).Warn("failed to fetch pending operations")
		return
	}
	if len(entries) == 0 {
		return
	}

	r.log.WithField("count", len(entries)).Info("resubmitting pending operations")
	for _, entry := range entries {
		if !entry.Valid() {
			r.log.WithField("client_id", entry.ClientID).Warn("skipping malformed pending entry")
			continue
		}

		req := NewRequest("submit").
			Set("tx_json", entry.TxJSON).
			Set("client_id", entry.ClientID)
		if entry.SubmitIndex > 0 {
			req.Set("submit_index", entry.SubmitIndex)
		}
		if entry.Attempts > 0 {
			req.Set("attempts", entry.Attempts)
		}
		r.Submit(req)
	}
}
