package session

import (
	"gitlab.com/silenteer-oss/wampc/wamp"
)

// dispatch is the inbound dispatcher (spec.md §4.2): decode the
// leading type code, reject outbound-only/unknown variants, then route
// the decoded message to its handler.
func (s *Session) dispatch(raw wamp.List) {
	if len(raw) == 0 {
		s.logger.Error("dropped empty inbound frame")
		s.messageDropped()
		return
	}

	msg, err := wamp.Decode(raw)
	if err != nil {
		s.logger.Error("dropped undecodable inbound frame", map[string]interface{}{"err": err})
		s.messageDropped()
		return
	}

	switch m := msg.(type) {
	case *wamp.Welcome:
		s.handleWelcome(m)
	case *wamp.Abort:
		s.handleAbort(m)
	case *wamp.Challenge:
		s.handleChallenge(m)
	case *wamp.Goodbye:
		s.handleGoodbye(m)
	case *wamp.Result:
		s.handleResult(m)
	case *wamp.Error:
		s.handleError(m)
	case *wamp.Subscribed:
		s.handleSubscribed(m)
	case *wamp.Unsubscribed:
		s.handleUnsubscribed(m)
	case *wamp.Published:
		s.handlePublished(m)
	case *wamp.Event:
		s.handleEvent(m)
	case *wamp.Registered:
		s.handleRegistered(m)
	case *wamp.Unregistered:
		s.handleUnregistered(m)
	case *wamp.Invocation:
		s.handleInvocation(m)
	default:
		s.logger.Error("dropped unroutable inbound frame")
		s.messageDropped()
	}
}

func (s *Session) handleWelcome(m *wamp.Welcome) {
	s.mu.Lock()
	if s.state != HelloSent && s.state != Challenged {
		s.mu.Unlock()
		s.logger.Error("WELCOME received outside HELLO-SENT/CHALLENGED")
		return
	}
	sid := m.Session
	s.sessionID = &sid
	s.routerRoles = wamp.ParseRouterRoles(m.Details)
	s.state = Established
	cb := s.cfg.OnConnected
	tracer := s.cfg.Tracer
	realm := s.cfg.Realm
	s.mu.Unlock()

	if tracer != nil {
		span := tracer.StartSessionSpan(realm, uint64(sid))
		s.mu.Lock()
		s.span = span
		s.mu.Unlock()
	}

	if cb != nil {
		cb(s, sid)
	}
}

func (s *Session) handleAbort(m *wamp.Abort) {
	s.mu.Lock()
	if s.state != HelloSent && s.state != Challenged {
		s.mu.Unlock()
		s.logger.Error("ABORT received outside HELLO-SENT/CHALLENGED")
		return
	}
	s.state = Aborted
	s.mu.Unlock()

	s.transport.Disconnect(m.Reason)
}

func (s *Session) handleChallenge(m *wamp.Challenge) {
	s.mu.Lock()
	if s.state != HelloSent {
		s.mu.Unlock()
		s.logger.Error("CHALLENGE received outside HELLO-SENT")
		return
	}
	onChallenge := s.cfg.OnChallenge
	s.mu.Unlock()

	if onChallenge == nil {
		s.send(&wamp.Abort{Details: wamp.Dict{}, Reason: wamp.ErrSystemShutdown})
		s.transport.Disconnect("No challenge delegate found.")
		s.mu.Lock()
		s.state = Aborted
		s.mu.Unlock()
		return
	}

	signature, err := onChallenge(m.AuthMethod, m.Extra)
	if err != nil {
		s.logger.Error("challenge delegate returned an error", map[string]interface{}{"err": err})
		s.send(&wamp.Abort{Details: wamp.Dict{}, Reason: wamp.ErrSystemShutdown})
		s.transport.Disconnect("Challenge delegate error.")
		s.mu.Lock()
		s.state = Aborted
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.state = Challenged
	s.mu.Unlock()
	s.send(&wamp.Authenticate{Signature: signature, Extra: wamp.Dict{}})
}

func (s *Session) handleGoodbye(m *wamp.Goodbye) {
	s.mu.Lock()
	if s.state != Established && s.state != Closing {
		s.mu.Unlock()
		s.logger.Error("GOODBYE received outside ESTABLISHED/CLOSING")
		return
	}
	routerInitiated := m.Reason != wamp.ErrGoodbyeAndOut
	s.mu.Unlock()

	if routerInitiated {
		s.send(&wamp.Goodbye{Details: wamp.Dict{}, Reason: wamp.ErrGoodbyeAndOut})
	}
	s.transport.Disconnect(m.Reason)

	s.mu.Lock()
	s.state = Disconnected
	s.mu.Unlock()
}

func (s *Session) handleResult(m *wamp.Result) {
	s.mu.Lock()
	entry, ok := s.pending.calls[m.RequestID]
	if ok {
		delete(s.pending.calls, m.RequestID)
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Error("dropped RESULT with no matching CALL", map[string]interface{}{"requestId": m.RequestID})
		s.messageDropped()
		return
	}
	entry.lane.Post(func() {
		if entry.success != nil {
			entry.success(m.Details, m.Args, m.KwArgs)
		}
	})
}

func (s *Session) handleError(m *wamp.Error) {
	switch wamp.MessageType(m.RequestType) {
	case wamp.CALL:
		s.mu.Lock()
		entry, ok := s.pending.calls[m.RequestID]
		if ok {
			delete(s.pending.calls, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Error("dropped ERROR with no matching CALL", map[string]interface{}{"requestId": m.RequestID})
			s.messageDropped()
			return
		}
		entry.lane.Post(func() {
			if entry.failure != nil {
				entry.failure(m.Details, m.Error, m.Args, m.KwArgs)
			}
		})
	case wamp.REGISTER:
		s.mu.Lock()
		entry, ok := s.pending.registers[m.RequestID]
		if ok {
			delete(s.pending.registers, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Error("dropped ERROR with no matching REGISTER", map[string]interface{}{"requestId": m.RequestID})
			s.messageDropped()
			return
		}
		entry.lane.Post(func() {
			if entry.failure != nil {
				entry.failure(m.Details, m.Error)
			}
		})
	case wamp.UNREGISTER:
		s.mu.Lock()
		entry, ok := s.pending.unregisters[m.RequestID]
		if ok {
			delete(s.pending.unregisters, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Error("dropped ERROR with no matching UNREGISTER", map[string]interface{}{"requestId": m.RequestID})
			s.messageDropped()
			return
		}
		entry.lane.Post(func() {
			if entry.failure != nil {
				entry.failure(m.Details, m.Error)
			}
		})
	case wamp.SUBSCRIBE:
		s.mu.Lock()
		entry, ok := s.pending.subscribes[m.RequestID]
		if ok {
			delete(s.pending.subscribes, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Error("dropped ERROR with no matching SUBSCRIBE", map[string]interface{}{"requestId": m.RequestID})
			s.messageDropped()
			return
		}
		entry.lane.Post(func() {
			if entry.failure != nil {
				entry.failure(m.Details, m.Error)
			}
		})
	case wamp.UNSUBSCRIBE:
		s.mu.Lock()
		entry, ok := s.pending.unsubscribes[m.RequestID]
		if ok {
			delete(s.pending.unsubscribes, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Error("dropped ERROR with no matching UNSUBSCRIBE", map[string]interface{}{"requestId": m.RequestID})
			s.messageDropped()
			return
		}
		entry.lane.Post(func() {
			if entry.failure != nil {
				entry.failure(m.Details, m.Error)
			}
		})
	case wamp.PUBLISH:
		s.mu.Lock()
		entry, ok := s.pending.publishes[m.RequestID]
		if ok {
			delete(s.pending.publishes, m.RequestID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Error("dropped ERROR with no matching acknowledged PUBLISH", map[string]interface{}{"requestId": m.RequestID})
			s.messageDropped()
			return
		}
		entry.lane.Post(func() {
			if entry.failure != nil {
				entry.failure(m.Details, m.Error)
			}
		})
	default:
		s.logger.Error("dropped ERROR with unsupported request type", map[string]interface{}{"requestType": m.RequestType})
		s.messageDropped()
	}
}

func (s *Session) handleSubscribed(m *wamp.Subscribed) {
	s.mu.Lock()
	entry, ok := s.pending.subscribes[m.RequestID]
	if ok {
		delete(s.pending.subscribes, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped SUBSCRIBED with no matching SUBSCRIBE", map[string]interface{}{"requestId": m.RequestID})
		s.messageDropped()
		return
	}

	sub := &Subscription{owner: s, id: m.SubscriptionID, topic: entry.topic, handler: entry.handler, lane: entry.lane}

	s.mu.Lock()
	s.handles.addSubscription(sub)
	s.mu.Unlock()
	s.reportStats()

	entry.lane.Post(func() {
		if entry.success != nil {
			entry.success(sub)
		}
	})
}

func (s *Session) handleUnsubscribed(m *wamp.Unsubscribed) {
	s.mu.Lock()
	entry, ok := s.pending.unsubscribes[m.RequestID]
	if ok {
		delete(s.pending.unsubscribes, m.RequestID)
		s.handles.removeSubscription(entry.subscriptionID)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped UNSUBSCRIBED with no matching UNSUBSCRIBE", map[string]interface{}{"requestId": m.RequestID})
		s.messageDropped()
		return
	}
	s.reportStats()
	entry.lane.Post(func() {
		if entry.success != nil {
			entry.success()
		}
	})
}

func (s *Session) handlePublished(m *wamp.Published) {
	s.mu.Lock()
	entry, ok := s.pending.publishes[m.RequestID]
	if ok {
		delete(s.pending.publishes, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped PUBLISHED with no matching acknowledged PUBLISH", map[string]interface{}{"requestId": m.RequestID})
		s.messageDropped()
		return
	}
	entry.lane.Post(func() {
		if entry.success != nil {
			entry.success()
		}
	})
}

func (s *Session) handleEvent(m *wamp.Event) {
	s.mu.Lock()
	sub, ok := s.handles.subscriptions[m.SubscriptionID]
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped EVENT for unknown subscription", map[string]interface{}{"subscriptionId": m.SubscriptionID})
		s.messageDropped()
		return
	}

	details := m.Details
	if len(details) > 0 {
		merged := wamp.Dict{}
		for k, v := range details {
			merged[k] = v
		}
		merged["topic"] = sub.topic
		details = merged
	}

	sub.lane.Post(func() {
		if sub.handler != nil {
			sub.handler(details, m.Args, m.KwArgs)
		}
	})
}

func (s *Session) handleRegistered(m *wamp.Registered) {
	s.mu.Lock()
	entry, ok := s.pending.registers[m.RequestID]
	if ok {
		delete(s.pending.registers, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped REGISTERED with no matching REGISTER", map[string]interface{}{"requestId": m.RequestID})
		s.messageDropped()
		return
	}

	reg := &Registration{owner: s, id: m.RegistrationID, procedure: entry.procedure, handler: entry.handler, lane: entry.lane}

	s.mu.Lock()
	s.handles.addRegistration(reg)
	s.mu.Unlock()
	s.reportStats()

	entry.lane.Post(func() {
		if entry.success != nil {
			entry.success(reg)
		}
	})
}

func (s *Session) handleUnregistered(m *wamp.Unregistered) {
	s.mu.Lock()
	entry, ok := s.pending.unregisters[m.RequestID]
	if ok {
		delete(s.pending.unregisters, m.RequestID)
		s.handles.removeRegistration(entry.registrationID)
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped UNREGISTERED with no matching UNREGISTER", map[string]interface{}{"requestId": m.RequestID})
		s.messageDropped()
		return
	}
	s.reportStats()
	entry.lane.Post(func() {
		if entry.success != nil {
			entry.success()
		}
	})
}

func (s *Session) handleInvocation(m *wamp.Invocation) {
	s.mu.Lock()
	reg, ok := s.handles.registrations[m.RegistrationID]
	s.mu.Unlock()
	if !ok {
		s.logger.Error("dropped INVOCATION for unknown registration", map[string]interface{}{"registrationId": m.RegistrationID})
		s.messageDropped()
		return
	}

	details := m.Details
	if len(details) > 0 {
		merged := wamp.Dict{}
		for k, v := range details {
			merged[k] = v
		}
		merged["procedure"] = reg.procedure
		details = merged
	}

	// reg.handler only has to kick the work off and hand back resultCh;
	// the lane's one consumer goroutine must not block on resultCh
	// itself or a slow procedure would stall every other INVOCATION
	// and EVENT queued on this lane. The wait lives in its own
	// goroutine, which re-enters the lane only to send the YIELD.
	reg.lane.Post(func() {
		if reg.handler == nil {
			return
		}
		resultCh := reg.handler(details, m.Args, m.KwArgs)
		go func() {
			result := <-resultCh
			yield := shapeYield(m.RequestID, result.Value)
			reg.lane.Post(func() {
				s.send(yield)
			})
		}()
	})
}

// shapeYield implements the result-shaping rule in spec.md §4.2 /
// §8 scenario 6: a string-keyed map becomes kwargs-only, an ordered
// sequence becomes args-only, anything else becomes a single-element
// args list.
func shapeYield(requestID wamp.RequestID, value interface{}) *wamp.Yield {
	switch v := value.(type) {
	case wamp.Dict:
		return &wamp.Yield{RequestID: requestID, Options: wamp.Dict{}, Args: wamp.List{}, KwArgs: v}
	case map[string]interface{}:
		return &wamp.Yield{RequestID: requestID, Options: wamp.Dict{}, Args: wamp.List{}, KwArgs: wamp.Dict(v)}
	case wamp.List:
		return &wamp.Yield{RequestID: requestID, Options: wamp.Dict{}, Args: v}
	case []interface{}:
		return &wamp.Yield{RequestID: requestID, Options: wamp.Dict{}, Args: wamp.List(v)}
	default:
		return &wamp.Yield{RequestID: requestID, Options: wamp.Dict{}, Args: wamp.List{v}}
	}
}
