// Command wampc-example connects to a router, registers a procedure,
// subscribes to a topic, then calls its own procedure. It
// plays the role the teacher's cmd/client main.go played for the NATS
// request/reply client, but driving the session package's async API
// instead of a single blocking request.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/silenteer-oss/wampc"
	"gitlab.com/silenteer-oss/wampc/session"
	"gitlab.com/silenteer-oss/wampc/wamp"
)

func main() {
	lane := session.NewSerialLane(32)

	sess := wampc.NewWebSocketSession(
		wampc.WithAgent("wampc-example/1.0.0"),
		wampc.WithCallee(),
		wampc.WithConnectedDelegate(onConnected(lane)),
		wampc.WithSessionEndedDelegate(func(reason string) {
			fmt.Println("session ended:", reason)
		}),
	)

	if err := sess.Connect(); err != nil {
		fmt.Println("connect error:", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	sess.Disconnect("")
}

func onConnected(lane *session.SerialLane) session.ConnectedFunc {
	return func(sess *session.Session, sessionID wamp.RequestID) {
		fmt.Println("established, session id:", sessionID)

		sess.Register("com.example.echo", nil, lane,
			func(reg *session.Registration) {
				fmt.Println("registered:", reg.Procedure())
				callEcho(sess, lane)
			},
			func(details wamp.Dict, errURI string) {
				fmt.Println("register failed:", errURI)
			},
			func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) <-chan session.InvocationResult {
				out := make(chan session.InvocationResult, 1)
				out <- session.InvocationResult{Value: args}
				return out
			},
		)

		sess.Subscribe("com.example.ticks", nil, lane,
			func(sub *session.Subscription) {
				fmt.Println("subscribed:", sub.Topic())
			},
			func(details wamp.Dict, errURI string) {
				fmt.Println("subscribe failed:", errURI)
			},
			func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) {
				fmt.Println("event:", args)
			},
		)
	}
}

func callEcho(sess *session.Session, lane *session.SerialLane) {
	sess.Call("com.example.echo", nil, wamp.List{"hello", time.Now().Unix()}, nil, lane,
		func(details wamp.Dict, args wamp.List, kwArgs wamp.Dict) {
			fmt.Println("call result:", args)
		},
		func(details wamp.Dict, errURI string, args wamp.List, kwArgs wamp.Dict) {
			fmt.Println("call error:", errURI)
		},
	)
}
