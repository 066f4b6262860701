package grit

import (
	"bytes"
	"fmt"
	"sort"
)

// Encode renders o as its canonical byte encoding: the header
// "<type> <body-length>\x00" followed by the variant's body. Two objects
// with equal content always produce byte-identical encodings; this is the
// wire-level contract Hash relies on.
func Encode(o Object) []byte {
	body := o.encodeBody()

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s %d\x00", o.Kind(), len(body)))
	buf.Write(body)
	return buf.Bytes()
}

// encodeHeaderBlock renders a header map as repeating "key\x00value\x00"
// lines in sorted key order, followed by the single empty-key terminator
// byte. Shared by Blob and Message bodies.
func encodeHeaderBlock(headers map[string]string) []byte {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(0)
		buf.WriteString(headers[k])
		buf.WriteByte(0)
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

func (b Blob) encodeBody() []byte {
	var buf bytes.Buffer
	buf.Write(encodeHeaderBlock(b.Headers))
	buf.Write(b.Data)
	return buf.Bytes()
}

func (t Tree) encodeBody() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Id[:])
	}
	return buf.Bytes()
}

func (m Message) encodeBody() []byte {
	var buf bytes.Buffer

	var previous MessageId
	if m.Previous != nil {
		previous = *m.Previous
	}
	buf.Write(previous[:])

	buf.Write(encodeHeaderBlock(m.Headers))
	buf.Write(m.Content[:])

	return buf.Bytes()
}

func (mb Mailbox) encodeBody() []byte {
	var buf bytes.Buffer
	for _, e := range mb.Entries {
		buf.Write(e.Peer[:])
		buf.Write(e.Message[:])
	}
	return buf.Bytes()
}

func (s Step) encodeBody() []byte {
	var buf bytes.Buffer

	var previous StepId
	if s.Previous != nil {
		previous = *s.Previous
	}
	buf.Write(previous[:])

	buf.Write(s.Actor[:])

	var inbox, outbox MailboxId
	if s.Inbox != nil {
		inbox = *s.Inbox
	}
	if s.Outbox != nil {
		outbox = *s.Outbox
	}
	buf.Write(inbox[:])
	buf.Write(outbox[:])

	buf.Write(s.Core[:])

	return buf.Bytes()
}
