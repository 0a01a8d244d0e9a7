package session

import "gitlab.com/silenteer-oss/wampc/wamp"

// Call invokes a remote procedure (spec.md §4.3). The session must be
// ESTABLISHED; otherwise the call is logged and dropped with neither
// callback invoked (spec.md §4.1 "Error policy").
func (s *Session) Call(procedure string, options wamp.Dict, args wamp.List, kwArgs wamp.Dict, lane Lane, success CallSuccessFunc, failure CallErrorFunc) {
	if !s.isEstablished() {
		s.logger.Error("call issued while not connected", map[string]interface{}{"procedure": procedure})
		return
	}
	if options == nil {
		options = wamp.Dict{}
	}
	reqID := s.ids.Next()

	var span Span
	if s.cfg.Tracer != nil {
		s.mu.Lock()
		parent := s.span
		s.mu.Unlock()
		span = s.cfg.Tracer.StartRequestSpan(parent, "call", procedure)
	}

	s.mu.Lock()
	s.pending.calls[reqID] = &callEntry{success: finishCallSpan(span, success), failure: finishCallErrorSpan(span, failure), lane: lane}
	s.mu.Unlock()
	s.reportStats()

	s.send(&wamp.Call{RequestID: reqID, Options: options, Procedure: procedure, Args: args, KwArgs: kwArgs})
}

func finishCallSpan(span Span, success CallSuccessFunc) CallSuccessFunc {
	return func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) {
		if span != nil {
			span.Finish()
		}
		if success != nil {
			success(details, args, kwArgs)
		}
	}
}

func finishCallErrorSpan(span Span, failure CallErrorFunc) CallErrorFunc {
	return func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict) {
		if span != nil {
			span.Finish()
		}
		if failure != nil {
			failure(details, errURI, args, kwArgs)
		}
	}
}

// Register registers a procedure this session will handle as callee
// (spec.md §4.3).
func (s *Session) Register(procedure string, options wamp.Dict, lane Lane, success func(*Registration), failure RequestErrorFunc, handler InvocationHandler) {
	if !s.isEstablished() {
		s.logger.Error("register issued while not connected", map[string]interface{}{"procedure": procedure})
		return
	}
	if options == nil {
		options = wamp.Dict{}
	}
	reqID := s.ids.Next()

	s.mu.Lock()
	s.pending.registers[reqID] = &registerEntry{success: success, failure: failure, handler: handler, procedure: procedure, lane: lane}
	s.mu.Unlock()
	s.reportStats()

	s.send(&wamp.Register{RequestID: reqID, Options: options, Procedure: procedure})
}

// unregister implements handleOwner for Registration.Unregister.
func (s *Session) unregister(registrationID wamp.RequestID, success RequestSuccessFunc, failure RequestErrorFunc, lane Lane) {
	if !s.isEstablished() {
		s.logger.Error("unregister issued while not connected", map[string]interface{}{"registrationId": registrationID})
		return
	}
	reqID := s.ids.Next()

	s.mu.Lock()
	s.pending.unregisters[reqID] = &unregisterEntry{registrationID: registrationID, success: success, failure: failure, lane: lane}
	s.mu.Unlock()

	s.send(&wamp.Unregister{RequestID: reqID, RegistrationID: registrationID})
}

// Subscribe subscribes to a topic (spec.md §4.3).
func (s *Session) Subscribe(topic string, options wamp.Dict, lane Lane, success func(*Subscription), failure RequestErrorFunc, handler EventHandler) {
	if !s.isEstablished() {
		s.logger.Error("subscribe issued while not connected", map[string]interface{}{"topic": topic})
		return
	}
	if options == nil {
		options = wamp.Dict{}
	}
	reqID := s.ids.Next()

	s.mu.Lock()
	s.pending.subscribes[reqID] = &subscribeEntry{success: success, failure: failure, handler: handler, topic: topic, lane: lane}
	s.mu.Unlock()
	s.reportStats()

	s.send(&wamp.Subscribe{RequestID: reqID, Options: options, Topic: topic})
}

// unsubscribe implements handleOwner for Subscription.Unsubscribe.
func (s *Session) unsubscribe(subscriptionID wamp.RequestID, success RequestSuccessFunc, failure RequestErrorFunc, lane Lane) {
	if !s.isEstablished() {
		s.logger.Error("unsubscribe issued while not connected", map[string]interface{}{"subscriptionId": subscriptionID})
		return
	}
	reqID := s.ids.Next()

	s.mu.Lock()
	s.pending.unsubscribes[reqID] = &unsubscribeEntry{subscriptionID: subscriptionID, success: success, failure: failure, lane: lane}
	s.mu.Unlock()

	s.send(&wamp.Unsubscribe{RequestID: reqID, SubscriptionID: subscriptionID})
}

// Publish publishes an event (spec.md §4.3). Supplying success/failure
// sets options["acknowledge"]=true and records a pending continuation;
// otherwise the publish is fire-and-forget and no table entry is
// created.
func (s *Session) Publish(topic string, options wamp.Dict, args wamp.List, kwArgs wamp.Dict, lane Lane, success RequestSuccessFunc, failure RequestErrorFunc) {
	if !s.isEstablished() {
		s.logger.Error("publish issued while not connected", map[string]interface{}{"topic": topic})
		return
	}
	if options == nil {
		options = wamp.Dict{}
	}
	reqID := s.ids.Next()

	var span Span
	if s.cfg.Tracer != nil {
		s.mu.Lock()
		parent := s.span
		s.mu.Unlock()
		span = s.cfg.Tracer.StartRequestSpan(parent, "publish", topic)
	}

	acknowledged := success != nil || failure != nil
	if acknowledged {
		options["acknowledge"] = true
		s.mu.Lock()
		s.pending.publishes[reqID] = &publishEntry{success: finishRequestSpan(span, success), failure: finishRequestErrorSpan(span, failure), lane: lane}
		s.mu.Unlock()
	} else if span != nil {
		span.Finish()
	}

	s.send(&wamp.Publish{RequestID: reqID, Options: options, Topic: topic, Args: args, KwArgs: kwArgs})
}

func finishRequestSpan(span Span, success RequestSuccessFunc) RequestSuccessFunc {
	return func() {
		if span != nil {
			span.Finish()
		}
		if success != nil {
			success()
		}
	}
}

func finishRequestErrorSpan(span Span, failure RequestErrorFunc) RequestErrorFunc {
	return func(details wamp.Dict, errURI string) {
		if span != nil {
			span.Finish()
		}
		if failure != nil {
			failure(details, errURI)
		}
	}
}
