// Package chat runs chat turns against the assistant. A reply arrives either
// as one body or as a stream of text fragments terminated by a sentinel;
// both are exposed as the same fragment sequence.
package chat

import (
	"context"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/dmitrijs2005/thyroscope/internal/logging"
)

// Client allows one outstanding request at a time.
type Client struct {
	api      client.ChatAPI
	log      logging.Logger
	inFlight atomic.Bool
}

func NewClient(api client.ChatAPI, log logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{api: api, log: log}
}

// Busy reports whether a reply is still being received.
func (c *Client) Busy() bool {
	return c.inFlight.Load()
}

// Send opens a chat turn for message. It fails without network I/O when the
// trimmed message is empty or another turn is in flight. The slot is freed
// when the returned stream is drained or closed.
func (c *Client) Send(ctx context.Context, message string) (*Stream, error) {
	msg, err := c.reserve(message)
	if err != nil {
		return nil, err
	}
	return c.open(ctx, msg)
}

func (c *Client) reserve(message string) (string, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return "", ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return "", ErrSendInProgress
	}
	return msg, nil
}

func (c *Client) release() {
	c.inFlight.Store(false)
}

func (c *Client) open(ctx context.Context, msg string) (*Stream, error) {
	resp, err := c.api.Chat(ctx, msg)
	if err != nil {
		c.release()
		c.log.Warn(ctx, "chat request failed", "error", err)
		return nil, unavailable(err)
	}
	return &Stream{
		body:      resp.Body,
		streaming: resp.Streaming,
		release:   c.release,
		log:       c.log,
		ctx:       ctx,
	}, nil
}

// Stream is one reply. It can be iterated once.
type Stream struct {
	body      io.ReadCloser
	streaming bool
	release   func()
	log       logging.Logger
	ctx       context.Context

	used      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Close frees the client slot and the response body. Safe to call more
// than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
		s.release()
	})
	return s.closeErr
}

// Fragments yields the cleaned text of the reply in arrival order. A
// failure is yielded once as a *ChatError and ends the sequence. The stream
// is closed when iteration stops for any reason.
func (s *Stream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.used.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		defer s.Close()

		if !s.streaming {
			text, err := readAll(s.body)
			if err != nil {
				s.log.Warn(s.ctx, "chat reply could not be read", "error", err)
				yield("", unavailable(err))
				return
			}
			yield(text, nil)
			return
		}

		for frag, err := range decodeFragments(s.body) {
			if err != nil {
				s.log.Warn(s.ctx, "chat stream broke off", "error", err)
				yield("", unavailable(err))
				return
			}
			if !yield(frag, nil) {
				return
			}
		}
	}
}
