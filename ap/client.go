package ap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	dialTimeout      = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

// ErrRefused is returned when the server rejects the Connect handshake
// (wrong slot name, wrong password, wrong game).
var ErrRefused = errors.New("connection refused by server")

// Client is the live Session implementation over a websocket connection.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex // serializes frames to the server

	mu        sync.Mutex
	seedName  string
	slotData  map[string]any
	items     []NetworkItem
	delivered int // items already handed to the handler
	handler   func(index int, item NetworkItem)

	closeOnce sync.Once
	done      chan struct{}
}

var _ Session = (*Client)(nil)

// Connect dials the server, performs the RoomInfo/Connect handshake and
// starts the read pump. It tries wss:// first (public hosts terminate
// TLS) and falls back to ws:// for local servers.
func Connect(opts LoginOptions, logger *zap.Logger) (*Client, error) {
	conn, err := dial(opts.Address, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := c.handshake(opts); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readPump()
	return c, nil
}

func dial(address string, logger *zap.Logger) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	conn, _, err := dialer.Dial("wss://"+address, nil)
	if err == nil {
		return conn, nil
	}
	logger.Debug("wss dial failed, retrying without TLS", zap.String("address", address), zap.Error(err))

	conn, _, wsErr := dialer.Dial("ws://"+address, nil)
	if wsErr != nil {
		return nil, fmt.Errorf("dial %s: %w", address, wsErr)
	}
	return conn, nil
}

// handshake waits for RoomInfo, sends Connect and waits for the verdict.
func (c *Client) handshake(opts LoginOptions) error {
	deadline := time.Now().Add(handshakeTimeout)
	c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	sentConnect := false
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("handshake read: %w", err)
		}
		cmds, err := splitCommands(frame)
		if err != nil {
			c.logger.Warn("undecodable frame during handshake", zap.Error(err))
			continue
		}
		for _, raw := range cmds {
			var base baseMsg
			if err := json.Unmarshal(raw, &base); err != nil {
				continue
			}
			switch base.Cmd {
			case cmdRoomInfo:
				var ri roomInfoMsg
				if err := json.Unmarshal(raw, &ri); err != nil {
					return fmt.Errorf("decode RoomInfo: %w", err)
				}
				c.mu.Lock()
				c.seedName = ri.SeedName
				c.mu.Unlock()

				if err := c.send(connectMsg{
					Cmd:           cmdConnect,
					Game:          opts.Game,
					Name:          opts.Slot,
					Password:      opts.Password,
					UUID:          uuid.New().String(),
					Version:       versionMsg{Major: 0, Minor: 5, Build: 0, Class: "Version"},
					ItemsHandling: itemsHandlingAll,
					Tags:          []string{"AP"},
					SlotData:      true,
				}); err != nil {
					return fmt.Errorf("send Connect: %w", err)
				}
				sentConnect = true

			case cmdConnected:
				if !sentConnect {
					continue
				}
				var conn connectedMsg
				if err := json.Unmarshal(raw, &conn); err != nil {
					return fmt.Errorf("decode Connected: %w", err)
				}
				c.mu.Lock()
				c.slotData = conn.SlotData
				c.mu.Unlock()
				c.logger.Info("connected",
					zap.Int("slot", conn.Slot),
					zap.String("seed", c.SeedName()))
				return nil

			case cmdConnectionRefused:
				var ref connectionRefusedMsg
				_ = json.Unmarshal(raw, &ref)
				if len(ref.Errors) > 0 {
					return fmt.Errorf("%w: %s", ErrRefused, strings.Join(ref.Errors, ", "))
				}
				return ErrRefused

			case cmdReceivedItems:
				// Possible when the server batches Connected with the
				// initial item list in one frame.
				c.handleReceivedItems(raw)
			}
		}
	}
}

// readPump owns the connection's read side after login. Connection loss is
// logged, never fatal to the process.
func (c *Client) readPump() {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("server connection lost", zap.Error(err))
			}
			return
		}
		cmds, err := splitCommands(frame)
		if err != nil {
			c.logger.Warn("undecodable frame", zap.Error(err))
			continue
		}
		for _, raw := range cmds {
			var base baseMsg
			if err := json.Unmarshal(raw, &base); err != nil {
				continue
			}
			if base.Cmd == cmdReceivedItems {
				c.handleReceivedItems(raw)
			}
			// PrintJSON, RoomUpdate, Bounced and friends are irrelevant
			// to the bridge and skipped.
		}
	}
}

// handleReceivedItems merges a ReceivedItems batch into the list and fires
// the handler once per list position that has never been delivered. The
// index field anchors the batch in the full sequence: an index below the
// current length is a server resync and overwrites from that point.
func (c *Client) handleReceivedItems(raw json.RawMessage) {
	var msg receivedItemsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("undecodable ReceivedItems", zap.Error(err))
		return
	}

	c.mu.Lock()
	if msg.Index > len(c.items) {
		c.logger.Warn("gap in received-item sequence, requesting sync",
			zap.Int("index", msg.Index), zap.Int("have", len(c.items)))
		c.mu.Unlock()
		if err := c.send(baseMsg{Cmd: cmdSync}); err != nil {
			c.logger.Warn("sync request failed", zap.Error(err))
		}
		return
	}
	c.items = append(c.items[:msg.Index], msg.Items...)

	var fresh []NetworkItem
	start := c.delivered
	if c.delivered < len(c.items) {
		fresh = append(fresh, c.items[c.delivered:]...)
		c.delivered = len(c.items)
	}
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		for i, item := range fresh {
			handler(start+i, item)
		}
	}
}

func (c *Client) send(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON([]any{msg})
}

// SeedName implements Session.
func (c *Client) SeedName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seedName
}

// SlotData implements Session.
func (c *Client) SlotData() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotData
}

// AllItemsReceived implements Session.
func (c *Client) AllItemsReceived() []NetworkItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]NetworkItem, len(c.items))
	copy(out, c.items)
	return out
}

// SetItemHandler implements Session. Items already in the list never
// re-fire; the delivered cursor starts at the current length.
func (c *Client) SetItemHandler(fn func(index int, item NetworkItem)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
	if c.delivered < len(c.items) {
		c.delivered = len(c.items)
	}
}

// CompleteLocationChecks implements Session.
func (c *Client) CompleteLocationChecks(ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return c.send(locationChecksMsg{Cmd: cmdLocationChecks, Locations: ids})
}

// Close implements Session.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}
