// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package letta

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/animusuno/animus-chat/internal/stream"
)

// =============================================================================
// SSE READER
// =============================================================================

// MaxEventSize is the largest SSE event accepted, counting every line of it.
const MaxEventSize = 1 << 20

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader   *bufio.Reader
	maxEvent int
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r), maxEvent: MaxEventSize}
}

// ReadEvent reads the next event and returns its type and data.
// Multi-line data is joined with newlines. Returns io.EOF when the stream
// ends without a pending event, and ErrEventTooLarge when an event grows
// past MaxEventSize.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.readLine(s.maxEvent - size)
		size += len(line)
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) && len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends an event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			if err != nil {
				return "", nil, err
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			data = bytes.TrimPrefix(data, []byte(" "))
			dataLines = append(dataLines, data)
		}
		// id:, retry: and ":" comments are ignored.

		if err != nil {
			// Last line had no terminating newline.
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, err
		}
	}
}

// readLine reads one line of at most limit bytes.
func (s *SSEReader) readLine(limit int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(line)+len(chunk) > limit {
			return nil, fmt.Errorf("%w: over %d bytes", ErrEventTooLarge, s.maxEvent)
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// SendMessageStream sends text to the selected agent and returns the reply as
// a lazy fragment sequence. Breaking out of the sequence closes the
// connection. Reasoning chunks are only yielded when showReasoning is set;
// the first chunk of a reasoning run carries stream.Marker and the rest are
// flagged Continued.
//
// Failures are yielded once as the error of the final element: request
// errors as returned by the server mapping, and mid-stream errors as
// *StreamError with the reply text received so far.
func (c *Client) SendMessageStream(ctx context.Context, text string, showReasoning bool) iter.Seq2[stream.Fragment, error] {
	return func(yield func(stream.Fragment, error) bool) {
		agentID, err := c.ready()
		if err != nil {
			yield(stream.Fragment{}, err)
			return
		}

		resp, err := c.openStream(ctx, agentID, text)
		if err != nil {
			yield(stream.Fragment{}, err)
			return
		}
		defer resp.Body.Close()

		var (
			partial       strings.Builder
			lastReasoning bool
		)
		emit := func(f stream.Fragment) bool {
			return yield(f, nil)
		}
		fail := func(err error) {
			yield(stream.Fragment{}, &StreamError{Partial: partial.String(), Err: err})
		}

		reader := NewSSEReader(resp.Body)
		for {
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}

			eventType, data, err := reader.ReadEvent()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				fail(err)
				return
			}

			if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
				return
			}

			var msg lettaMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.logger.Debug("skipping malformed stream event", "error", err)
				continue
			}

			if eventType == "error" || msg.Error != nil {
				se := msg.Error
				if se == nil {
					se = &serverError{Message: strings.TrimSpace(string(data))}
				}
				fail(fmt.Errorf("server error: %s", se.text()))
				return
			}

			switch msg.MessageType {
			case MessageTypeAssistant:
				content := msg.Text()
				if content == "" {
					continue
				}
				lastReasoning = false
				partial.WriteString(content)
				if !emit(stream.Fragment{Text: content}) {
					return
				}

			case MessageTypeReasoning:
				if !showReasoning || msg.Reasoning == "" {
					continue
				}
				frag := stream.Fragment{Text: msg.Reasoning, Continued: true}
				if !lastReasoning {
					frag = stream.Fragment{Text: stream.Marker + msg.Reasoning}
				}
				lastReasoning = true
				if !emit(frag) {
					return
				}

			case MessageTypeStopReason:
				c.logger.Debug("stream stop reason", "reason", msg.StopReason)

			default:
				c.logger.Debug("ignoring stream event", "message_type", msg.MessageType)
			}
		}
	}
}

// openStream posts the message and returns the response once the server
// accepted it.
func (c *Client) openStream(ctx context.Context, agentID, text string) (*http.Response, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, messagesPath(agentID, true), newMessageRequest(text, true))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.do(c.streamClient, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := readResponse(resp)
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}
	return resp, nil
}
