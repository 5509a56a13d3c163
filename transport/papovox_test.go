package transport

import (
	"net"
	"testing"
	"time"
)

func TestPapovoxRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sender := NewPapovox(client)
	receiver := NewPapovox(server)

	frame := []byte{7, 'o', 'l', 'a'}
	errc := make(chan error, 1)
	go func() { errc <- sender.Send(frame) }()

	server.SetReadDeadline(time.Now().Add(time.Second))
	got, err := receiver.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if string(got) != string(frame) {
		t.Fatalf("got %v, want %v", got, frame)
	}
}

func TestPapovoxEmptyPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sender := NewPapovox(client)
	receiver := NewPapovox(server)

	frame := []byte{3}
	go sender.Send(frame)

	server.SetReadDeadline(time.Now().Add(time.Second))
	got, err := receiver.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("got %v, want [3]", got)
	}
}
