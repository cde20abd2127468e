package metrics

// IncrementBoardCreated increments board creation counter
func (m *Metrics) IncrementBoardCreated() {
	m.safeExecute("IncrementBoardCreated", func() {
		m.BoardCreatedTotal.Inc()
	})
}

// SetBoardsTotal sets total boards gauge
func (m *Metrics) SetBoardsTotal(count int64) {
	m.safeExecute("SetBoardsTotal", func() {
		m.BoardsTotal.Set(float64(count))
	})
}

// RecordLike counts a like toggle; liked=false means the like was removed
func (m *Metrics) RecordLike(liked bool) {
	m.safeExecute("RecordLike", func() {
		action := "unlike"
		if liked {
			action = "like"
		}
		m.LikesTotal.WithLabelValues(action).Inc()
	})
}

func (m *Metrics) IncrementMatch() {
	m.safeExecute("IncrementMatch", func() {
		m.MatchesTotal.Inc()
	})
}

// RecordJoin counts a join attempt: joined, already_joined or full
func (m *Metrics) RecordJoin(result string) {
	m.safeExecute("RecordJoin", func() {
		m.JoinsTotal.WithLabelValues(result).Inc()
	})
}

// RecordRequestHandled counts approve/reject decisions, including lost races
func (m *Metrics) RecordRequestHandled(decision string) {
	m.safeExecute("RecordRequestHandled", func() {
		m.RequestsHandledTotal.WithLabelValues(decision).Inc()
	})
}

func (m *Metrics) IncrementMessageSent() {
	m.safeExecute("IncrementMessageSent", func() {
		m.MessagesSentTotal.Inc()
	})
}

func (m *Metrics) IncrementNotificationFailed() {
	m.safeExecute("IncrementNotificationFailed", func() {
		m.NotificationsFailedTotal.Inc()
	})
}

// RecordDemoFallback counts an auth call served in demo mode
func (m *Metrics) RecordDemoFallback(reason string) {
	m.safeExecute("RecordDemoFallback", func() {
		m.AuthDemoFallbackTotal.WithLabelValues(reason).Inc()
	})
}

func (m *Metrics) IncWebSocketConnections() {
	m.safeExecute("IncWebSocketConnections", func() {
		m.WebSocketConnections.Inc()
	})
}

func (m *Metrics) DecWebSocketConnections() {
	m.safeExecute("DecWebSocketConnections", func() {
		m.WebSocketConnections.Dec()
	})
}

func (m *Metrics) IncrementRealtimePublishError() {
	m.safeExecute("IncrementRealtimePublishError", func() {
		m.RealtimePublishErrors.Inc()
	})
}
