package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/paramtree/paramtree-go/pkg/interaction"
	"github.com/paramtree/paramtree-go/pkg/log"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/schema"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

func newTestTree(t *testing.T, opts ...model.TreeOption) *model.Tree {
	t.Helper()
	def, err := schema.LoadBundle("tr181")
	if err != nil {
		t.Fatalf("LoadBundle failed: %v", err)
	}
	tree, err := model.NewTree(def, opts...)
	if err != nil {
		t.Fatalf("NewTree failed: %v", err)
	}
	return tree
}

func startServer(t *testing.T, handler Handler, tlsConf *tls.Config) *Server {
	t.Helper()
	srv := NewServer(handler, ServerConfig{Address: "127.0.0.1:0", TLSConfig: tlsConf})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func dial(t *testing.T, srv *Server, tlsConf *tls.Config) *ClientConn {
	t.Helper()
	conn, err := Dial(context.Background(), srv.Addr().String(), ClientConfig{TLSConfig: tlsConf})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagementSession(t *testing.T) {
	tree := newTestTree(t)
	srv := startServer(t, interaction.NewServer(tree), nil)
	conn := dial(t, srv, nil)
	client := conn.Client()
	ctx := context.Background()

	waitFor(t, "connection", func() bool { return srv.ConnectionCount() == 1 })

	id, err := client.AddObject(ctx, "Device.NAT.PortMapping.", "k1")
	if err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}
	if id != 1 {
		t.Errorf("instance: got %d", id)
	}

	err = client.SetParameterValues(ctx, "k2", wire.Value{Path: "Device.NAT.PortMapping.1.ExternalPort", Value: 8080})
	if err != nil {
		t.Fatalf("SetParameterValues failed: %v", err)
	}

	v, err := tree.Get("Device.NAT.PortMapping.1.ExternalPort")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != uint32(8080) {
		t.Errorf("ExternalPort: got %v", v)
	}

	err = client.SetParameterValues(ctx, "k3", wire.Value{Path: "Device.DeviceInfo.UpTime", Value: 1})
	var se *interaction.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if _, ok := se.FaultFor("Device.DeviceInfo.UpTime"); !ok {
		t.Errorf("expected fault for UpTime, got %+v", se.Faults)
	}
}

func TestConcurrentRequests(t *testing.T) {
	tree := newTestTree(t)
	srv := startServer(t, interaction.NewServer(tree), nil)
	client := dial(t, srv, nil).Client()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetParameterValues(context.Background(), "Device.DeviceInfo.")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("GetParameterValues failed: %v", err)
		}
	}
}

func TestBroadcast(t *testing.T) {
	srv := startServer(t, interaction.NewServer(newTestTree(t)), nil)

	if err := srv.Broadcast(&wire.Notification{Sequence: 1}); err != nil {
		t.Errorf("Broadcast without clients: %v", err)
	}

	var got [2]chan *wire.Notification
	for i := range got {
		ch := make(chan *wire.Notification, 1)
		got[i] = ch
		dial(t, srv, nil).Client().SetNotificationHandler(func(n *wire.Notification) { ch <- n })
	}
	waitFor(t, "connections", func() bool { return srv.ConnectionCount() == 2 })

	notif := &wire.Notification{
		Sequence: 7,
		Changes:  []wire.Value{{Path: "Device.DeviceInfo.SoftwareVersion", Type: "string", Value: "2.0.1"}},
	}
	if err := srv.Broadcast(notif); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	for i, ch := range got {
		select {
		case n := <-ch:
			if n.Sequence != 7 || len(n.Changes) != 1 || n.Changes[0].Value != "2.0.1" {
				t.Errorf("client %d: got %+v", i, n)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client %d: no notification", i)
		}
	}
}

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(ev log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureLogger) remotes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		if ev.Message != nil {
			out = append(out, ev.RemoteAddr)
		}
	}
	return out
}

func TestRequestsRecordPeerAddress(t *testing.T) {
	capture := &captureLogger{}
	rec := log.NewRecorder(capture, "")
	srv := startServer(t, interaction.NewServer(newTestTree(t), interaction.WithRecorder(rec)), nil)

	conn, err := Dial(context.Background(), srv.Addr().String(), ClientConfig{})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	local := conn.conn.LocalAddr().String()

	if _, err := conn.Client().GetParameterValues(context.Background(), "Device.DeviceInfo.UpTime"); err != nil {
		t.Fatalf("GetParameterValues failed: %v", err)
	}

	remotes := capture.remotes()
	if len(remotes) != 2 {
		t.Fatalf("expected request and response events, got %v", remotes)
	}
	for _, r := range remotes {
		if r != local {
			t.Errorf("remote: got %q, want %q", r, local)
		}
	}
}

func TestUndecodableFrameIsDropped(t *testing.T) {
	srv := startServer(t, interaction.NewServer(newTestTree(t)), nil)

	raw, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer raw.Close()
	framer := NewFramer(raw, 0)

	if err := framer.WriteFrame([]byte{0xff, 0x00, 0x13}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	req, err := wire.NewRequest(5, wire.OpGetParameterValues, wire.GetValuesPayload{Paths: []string{"Device.DeviceInfo.UpTime"}})
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	if err := framer.WriteFrame(data); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	raw.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := framer.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	resp, err := wire.DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.MessageID != 5 || !resp.IsSuccess() {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestUnknownOperationAnswered(t *testing.T) {
	srv := startServer(t, interaction.NewServer(newTestTree(t)), nil)

	raw, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer raw.Close()
	framer := NewFramer(raw, 0)

	data, err := wire.Marshal(&wire.Request{MessageID: 11, Operation: wire.Operation(8)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := framer.WriteFrame(data); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	raw.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := framer.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	resp, err := wire.DecodeResponse(frame)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.MessageID != 11 || resp.Status != wire.StatusMethodNotSupported {
		t.Errorf("expected 9000 for message 11, got %+v", resp)
	}
}

func TestServerStopClosesClients(t *testing.T) {
	var mu sync.Mutex
	var events []string
	srv := NewServer(interaction.NewServer(newTestTree(t)), ServerConfig{
		Address:      "127.0.0.1:0",
		OnConnect:    func(string) { mu.Lock(); events = append(events, "connect"); mu.Unlock() },
		OnDisconnect: func(string) { mu.Lock(); events = append(events, "disconnect"); mu.Unlock() },
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected error starting twice")
	}

	conn := dial(t, srv, nil)
	waitFor(t, "connection", func() bool { return srv.ConnectionCount() == 1 })

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client read loop still running")
	}
	if err := conn.Send([]byte{1}); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send after close: got %v", err)
	}
	if _, err := conn.Client().GetParameterValues(context.Background(), "Device."); err == nil {
		t.Error("expected request on closed connection to fail")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != "connect" || events[1] != "disconnect" {
		t.Errorf("callbacks: got %v", events)
	}
}

func TestDialRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	if _, err := Dial(context.Background(), addr, ClientConfig{ConnectTimeout: time.Second}); err == nil {
		t.Fatal("expected dial error")
	}
}

func selfSigned(t *testing.T) (*tls.Config, *tls.Config) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "cpe.test"},
		DNSNames:     []string{"cpe.test"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	server := &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		MinVersion:   tls.VersionTLS13,
	}
	client := &tls.Config{RootCAs: pool, ServerName: "cpe.test", MinVersion: tls.VersionTLS13}
	return server, client
}

func TestTLSSession(t *testing.T) {
	serverConf, clientConf := selfSigned(t)
	srv := startServer(t, interaction.NewServer(newTestTree(t)), serverConf)
	client := dial(t, srv, clientConf).Client()

	values, err := client.GetParameterValues(context.Background(), "Device.DeviceInfo.UpTime")
	if err != nil {
		t.Fatalf("GetParameterValues failed: %v", err)
	}
	if len(values) != 1 || values[0].Path != "Device.DeviceInfo.UpTime" {
		t.Errorf("unexpected values %+v", values)
	}

	// A client that does not trust the certificate fails the handshake.
	_, err = Dial(context.Background(), srv.Addr().String(), ClientConfig{TLSConfig: &tls.Config{ServerName: "cpe.test"}})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
}
