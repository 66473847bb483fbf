package viewer

import (
	"io"
	"net/http"
	"sync"
	"time"
)

// LoadingFade is how long the loading bar takes to fade out once the last
// request completes.
const LoadingFade = 200 * time.Millisecond

// LoadingBar counts in-flight requests. It is visible while at least one
// request is running.
type LoadingBar struct {
	mu        sync.Mutex
	inFlight  int
	nextID    int
	listeners map[int]func(visible bool)
}

// Loading is shared by every client built with InstrumentClient.
var Loading = NewLoadingBar()

func NewLoadingBar() *LoadingBar {
	return &LoadingBar{listeners: make(map[int]func(bool))}
}

// OnChange registers f to be called whenever the bar turns on or off. The
// returned func unregisters it.
func (b *LoadingBar) OnChange(f func(visible bool)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = f
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *LoadingBar) Begin() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFlight++
	if b.inFlight == 1 {
		b.notify(true)
	}
}

func (b *LoadingBar) End() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight == 0 {
		return
	}
	b.inFlight--
	if b.inFlight == 0 {
		b.notify(false)
	}
}

func (b *LoadingBar) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight > 0
}

func (b *LoadingBar) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// notify runs with mu held so listeners see transitions in order.
func (b *LoadingBar) notify(visible bool) {
	for _, f := range b.listeners {
		f(visible)
	}
}

type loadingTransport struct {
	base http.RoundTripper
	bar  *LoadingBar
}

// InstrumentClient returns a copy of client whose requests drive bar. A
// request counts from the moment it is sent until its body is closed.
func InstrumentClient(client *http.Client, bar *LoadingBar) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	instrumented := *client
	instrumented.Transport = &loadingTransport{base: base, bar: bar}
	return &instrumented
}

func (t *loadingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.bar.Begin()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.bar.End()
		return nil, err
	}
	resp.Body = &loadingBody{ReadCloser: resp.Body, end: sync.OnceFunc(t.bar.End)}
	return resp, nil
}

type loadingBody struct {
	io.ReadCloser
	end func()
}

func (b *loadingBody) Close() error {
	defer b.end()
	return b.ReadCloser.Close()
}
