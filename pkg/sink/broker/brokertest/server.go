// Package brokertest provides an in-process MQTT broker for tests, in the
// spirit of net/http/httptest.
package brokertest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/packets"
)

const (
	protocolVersion5   = byte(5)
	protocolVersion311 = byte(4)

	typeConnect    = packets.CONNECT
	typePublish    = packets.PUBLISH
	typePingreq    = packets.PINGREQ
	typeDisconnect = packets.DISCONNECT
)

// Message is one QoS 0 message received by the Server.
type Message struct {
	Topic           string
	Payload         string
	ProtocolVersion byte
}

type Option func(*Server)

// RefuseV5 makes the Server answer every MQTT v5 session with reason code
// "unsupported protocol version", like brokers which only speak v3.1.1.
func RefuseV5() Option {
	return func(s *Server) {
		s.refuseV5 = true
	}
}

// Server accepts MQTT v5 and v3.1.1 sessions on a random local port and
// records all published messages. Only what a QoS 0 publisher needs is
// supported: CONNECT, PUBLISH, PINGREQ and DISCONNECT.
type Server struct {
	listener net.Listener
	refuseV5 bool

	messages []Message
	sessions []byte
	conns    map[net.Conn]struct{}
	mutex    sync.Mutex
	wg       sync.WaitGroup
}

func NewServer(opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	result := &Server{
		listener: ln,
		conns:    map[net.Conn]struct{}{},
	}
	for _, opt := range opts {
		opt(result)
	}

	result.wg.Add(1)
	go result.accept()
	return result, nil
}

func (this *Server) Host() string {
	host, _, _ := net.SplitHostPort(this.listener.Addr().String())
	return host
}

func (this *Server) Port() uint16 {
	_, port, _ := net.SplitHostPort(this.listener.Addr().String())
	v, _ := strconv.ParseUint(port, 10, 16)
	return uint16(v)
}

// Messages returns all messages received so far.
func (this *Server) Messages() []Message {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return append([]Message(nil), this.messages...)
}

// Sessions returns the protocol version of every accepted session.
func (this *Server) Sessions() []byte {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return append([]byte(nil), this.sessions...)
}

// WaitForMessages waits until at least n messages were received. Publishing
// with QoS 0 is not acknowledged, so the receiving side lags behind.
func (this *Server) WaitForMessages(n int, timeout time.Duration) ([]Message, error) {
	deadline := time.Now().Add(timeout)
	for {
		result := this.Messages()
		if len(result) >= n {
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, fmt.Errorf("received %d of %d expected messages within %v", len(result), n, timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// DropSessions closes all established connections, like a restarting
// broker would.
func (this *Server) DropSessions() {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	for conn := range this.conns {
		_ = conn.Close()
	}
}

func (this *Server) Close() error {
	err := this.listener.Close()
	this.DropSessions()
	this.wg.Wait()
	return err
}

func (this *Server) accept() {
	defer this.wg.Done()
	for {
		conn, err := this.listener.Accept()
		if err != nil {
			return
		}
		this.mutex.Lock()
		this.conns[conn] = struct{}{}
		this.mutex.Unlock()

		this.wg.Add(1)
		go this.serve(conn)
	}
}

func (this *Server) serve(conn net.Conn) {
	defer this.wg.Done()
	defer func() {
		this.mutex.Lock()
		delete(this.conns, conn)
		this.mutex.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	header, body, err := readPacket(r)
	if err != nil || header>>4 != typeConnect {
		return
	}
	version, err := protocolVersionOf(body)
	if err != nil {
		return
	}

	switch {
	case version == protocolVersion5 && this.refuseV5:
		_ = writeConnackV5(conn, packets.ConnackUnsupportedProtocolVersion)
		return
	case version == protocolVersion5:
		if err := writeConnackV5(conn, packets.ConnackSuccess); err != nil {
			return
		}
		this.accepted(version)
		this.serveV5(conn, r)
	case version == protocolVersion311:
		if _, err := conn.Write([]byte{packets.CONNACK << 4, 0x02, 0x00, 0x00}); err != nil {
			return
		}
		this.accepted(version)
		this.serveV311(conn, r)
	}
}

func (this *Server) accepted(version byte) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.sessions = append(this.sessions, version)
}

func (this *Server) received(m Message) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	this.messages = append(this.messages, m)
}

func (this *Server) serveV5(conn net.Conn, r io.Reader) {
	for {
		cp, err := packets.ReadPacket(r)
		if err != nil {
			return
		}
		switch cp.Type {
		case typePublish:
			p := cp.Content.(*packets.Publish)
			this.received(Message{p.Topic, string(p.Payload), protocolVersion5})
		case typePingreq:
			if _, err := packets.NewControlPacket(packets.PINGRESP).WriteTo(conn); err != nil {
				return
			}
		case typeDisconnect:
			return
		}
	}
}

func (this *Server) serveV311(conn net.Conn, r *bufio.Reader) {
	for {
		header, body, err := readPacket(r)
		if err != nil {
			return
		}
		switch header >> 4 {
		case typePublish:
			topic, payload, err := parsePublishV311(header, body)
			if err != nil {
				return
			}
			this.received(Message{topic, payload, protocolVersion311})
		case typePingreq:
			if _, err := conn.Write([]byte{packets.PINGRESP << 4, 0x00}); err != nil {
				return
			}
		case typeDisconnect:
			return
		}
	}
}

func writeConnackV5(w io.Writer, reasonCode byte) error {
	cp := packets.NewControlPacket(packets.CONNACK)
	cp.Content.(*packets.Connack).ReasonCode = reasonCode
	_, err := cp.WriteTo(w)
	return err
}

// readPacket reads the fixed header byte and the remaining bytes of one
// packet.
func readPacket(r *bufio.Reader) (header byte, body []byte, err error) {
	if header, err = r.ReadByte(); err != nil {
		return 0, nil, err
	}
	length, multiplier := 0, 1
	for i := 0; ; i++ {
		if i >= 4 {
			return 0, nil, errors.New("malformed remaining length")
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		length += int(b&0x7f) * multiplier
		multiplier *= 128
		if b&0x80 == 0 {
			break
		}
	}
	body = make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return header, body, nil
}

func protocolVersionOf(connect []byte) (byte, error) {
	if len(connect) < 2 {
		return 0, errors.New("malformed connect packet")
	}
	i := 2 + (int(connect[0])<<8 | int(connect[1]))
	if len(connect) <= i {
		return 0, errors.New("malformed connect packet")
	}
	return connect[i], nil
}

func parsePublishV311(header byte, body []byte) (topic, payload string, _ error) {
	if len(body) < 2 {
		return "", "", errors.New("malformed publish packet")
	}
	end := 2 + (int(body[0])<<8 | int(body[1]))
	if len(body) < end {
		return "", "", errors.New("malformed publish packet")
	}
	topic = string(body[2:end])
	if (header>>1)&0x3 > 0 {
		end += 2
	}
	if len(body) < end {
		return "", "", errors.New("malformed publish packet")
	}
	return topic, string(body[end:]), nil
}
