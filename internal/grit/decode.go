package grit

import (
	"bytes"
	"fmt"
	"strconv"
)

// Decode parses a canonical byte encoding back into an Object. It is the
// exact inverse of Encode: Decode(Encode(o)) reproduces o for every variant,
// the round-trip property spec.md §8 invariant 1 requires.
func Decode(data []byte) (Object, error) {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 {
		return nil, ErrTruncated
	}

	header := string(data[:idx])
	body := data[idx+1:]

	var kindStr, lenStr string
	if _, err := fmt.Sscanf(header, "%s %s", &kindStr, &lenStr); err != nil {
		return nil, fmt.Errorf("grit: malformed header %q: %w", header, err)
	}

	length, err := strconv.Atoi(lenStr)
	if err != nil {
		return nil, fmt.Errorf("grit: malformed header length %q: %w", lenStr, err)
	}
	if length != len(body) {
		return nil, ErrLengthMismatch
	}

	switch Kind(kindStr) {
	case KindBlob:
		return decodeBlob(body)
	case KindTree:
		return decodeTree(body)
	case KindMessage:
		return decodeMessage(body)
	case KindMailbox:
		return decodeMailbox(body)
	case KindStep:
		return decodeStep(body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindStr)
	}
}

// decodeHeaderBlock parses the repeating "key\x00value\x00" lines used by
// Blob and Message bodies, stopping at the single empty-key terminator
// byte, and returns the bytes remaining after it.
func decodeHeaderBlock(data []byte) (map[string]string, []byte, error) {
	var headers map[string]string
	pos := 0

	for {
		idx := bytes.IndexByte(data[pos:], 0)
		if idx < 0 {
			return nil, nil, ErrTruncated
		}

		if idx == 0 {
			// Empty key: this is the terminator.
			pos++
			return headers, data[pos:], nil
		}

		key := string(data[pos : pos+idx])
		pos += idx + 1

		idx = bytes.IndexByte(data[pos:], 0)
		if idx < 0 {
			return nil, nil, ErrTruncated
		}
		value := string(data[pos : pos+idx])
		pos += idx + 1

		if headers == nil {
			headers = make(map[string]string)
		}
		headers[key] = value
	}
}

func decodeBlob(body []byte) (Object, error) {
	headers, data, err := decodeHeaderBlock(body)
	if err != nil {
		return nil, err
	}
	return Blob{Headers: headers, Data: data}, nil
}

func decodeTree(body []byte) (Object, error) {
	var t Tree
	seen := make(map[string]struct{})

	pos := 0
	for pos < len(body) {
		idx := bytes.IndexByte(body[pos:], 0)
		if idx < 0 {
			return nil, ErrTruncated
		}
		name := string(body[pos : pos+idx])
		pos += idx + 1

		if pos+idSize > len(body) {
			return nil, ErrTruncated
		}
		var id ObjectId
		copy(id[:], body[pos:pos+idSize])
		pos += idSize

		if _, dup := seen[name]; dup {
			return nil, ErrDuplicateTreeKey
		}
		seen[name] = struct{}{}

		t.Entries = append(t.Entries, TreeEntry{Name: name, Id: id})
	}
	return t, nil
}

func decodeMessage(body []byte) (Object, error) {
	if len(body) < idSize {
		return nil, ErrTruncated
	}
	var previous MessageId
	copy(previous[:], body[:idSize])

	headers, rest, err := decodeHeaderBlock(body[idSize:])
	if err != nil {
		return nil, err
	}
	if len(rest) != idSize {
		return nil, ErrTruncated
	}

	var content ObjectId
	copy(content[:], rest)

	var prevPtr *MessageId
	if !previous.IsZero() {
		prevPtr = &previous
	}

	return Message{Previous: prevPtr, Headers: headers, Content: content}, nil
}

func decodeMailbox(body []byte) (Object, error) {
	if len(body)%(2*idSize) != 0 {
		return nil, ErrTruncated
	}

	var mb Mailbox
	for pos := 0; pos < len(body); pos += 2 * idSize {
		var peer, msg ObjectId
		copy(peer[:], body[pos:pos+idSize])
		copy(msg[:], body[pos+idSize:pos+2*idSize])
		mb.Entries = append(mb.Entries, MailboxEntry{Peer: peer, Message: msg})
	}
	return mb, nil
}

func decodeStep(body []byte) (Object, error) {
	const stepBodyLen = 5 * idSize
	if len(body) != stepBodyLen {
		return nil, ErrTruncated
	}

	var previous, actor, inbox, outbox, core ObjectId
	copy(previous[:], body[0:idSize])
	copy(actor[:], body[idSize:2*idSize])
	copy(inbox[:], body[2*idSize:3*idSize])
	copy(outbox[:], body[3*idSize:4*idSize])
	copy(core[:], body[4*idSize:5*idSize])

	s := Step{Actor: actor, Core: core}
	if !previous.IsZero() {
		p := previous
		s.Previous = &p
	}
	if !inbox.IsZero() {
		i := inbox
		s.Inbox = &i
	}
	if !outbox.IsZero() {
		o := outbox
		s.Outbox = &o
	}
	return s, nil
}
