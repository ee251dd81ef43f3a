package transport

import "sync"

// Events stores the handlers of a Transport and dispatches to them. It is
// embedded by implementations; the zero value is ready to use.
type Events struct {
	mu           sync.RWMutex
	onMessage    MessageHandler
	onConnect    PeerHandler
	onDisconnect PeerHandler
}

func (e *Events) OnMessageReceived(handler MessageHandler) {
	e.mu.Lock()
	e.onMessage = handler
	e.mu.Unlock()
}

func (e *Events) OnPeerConnected(handler PeerHandler) {
	e.mu.Lock()
	e.onConnect = handler
	e.mu.Unlock()
}

func (e *Events) OnPeerDisconnected(handler PeerHandler) {
	e.mu.Lock()
	e.onDisconnect = handler
	e.mu.Unlock()
}

func (e *Events) EmitMessage(peer PeerID, typ MessageType, payload []byte) {
	e.mu.RLock()
	h := e.onMessage
	e.mu.RUnlock()
	if h != nil {
		h(peer, typ, payload)
	}
}

func (e *Events) EmitConnected(peer PeerID) {
	e.mu.RLock()
	h := e.onConnect
	e.mu.RUnlock()
	if h != nil {
		h(peer)
	}
}

func (e *Events) EmitDisconnected(peer PeerID) {
	e.mu.RLock()
	h := e.onDisconnect
	e.mu.RUnlock()
	if h != nil {
		h(peer)
	}
}
