// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// maxFragment bounds one NDJSON line.
const maxFragment = 1 << 20

// Stream yields the fragments of one streaming response in arrival order.
// A Stream is not safe for concurrent use.
type Stream struct {
	parent  context.Context
	reqCtx  context.Context
	cancel  context.CancelFunc
	body    io.ReadCloser
	status  int
	scanner *bufio.Scanner
	done    bool
	err     error
}

func newStream(parent, reqCtx context.Context, cancel context.CancelFunc, resp *http.Response) *Stream {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), maxFragment)
	return &Stream{
		parent:  parent,
		reqCtx:  reqCtx,
		cancel:  cancel,
		body:    resp.Body,
		status:  resp.StatusCode,
		scanner: sc,
	}
}

// Recv returns the next text fragment. It returns io.EOF after the fragment
// marked done. A body that ends before that marker is reported as
// types.ErrEndpointUnavailable.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	if s.err != nil {
		return "", s.err
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frag generateResponse
		if err := json.Unmarshal(line, &frag); err != nil {
			return "", s.fail(fmt.Errorf("decoding stream fragment: %w", err))
		}
		if frag.Error != "" {
			return "", s.fail(&types.ModelError{StatusCode: s.status, Body: frag.Error})
		}
		if frag.Done {
			s.done = true
			s.Close()
			if frag.Response == "" {
				return "", io.EOF
			}
		}
		return frag.Response, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", s.fail(transportError(s.parent, s.reqCtx, err))
	}
	if s.parent.Err() != nil {
		return "", s.fail(fmt.Errorf("model request cancelled: %w", s.parent.Err()))
	}
	return "", s.fail(fmt.Errorf("%w: stream ended before the final fragment", types.ErrEndpointUnavailable))
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.Close()
	return err
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

// Collect reads s to the end and returns the concatenated text. It always
// closes s.
func Collect(s *Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(frag)
	}
}
