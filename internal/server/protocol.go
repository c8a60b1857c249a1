package server

import (
	"bufio"
	"bytes"
	"net"
)

type protocolType int

const (
	protocolStream protocolType = iota
	protocolHTTP
)

func (p protocolType) String() string {
	if p == protocolHTTP {
		return "websocket"
	}
	return "stream"
}

// httpMethods are the request line prefixes that mark an HTTP client.
var httpMethods = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("PUT "),
	[]byte("HEAD"),
	[]byte("OPTI"),
	[]byte("PATC"),
	[]byte("DELE"),
	[]byte("CONN"),
}

// detectProtocol peeks at the first bytes to determine protocol type.
// A raw stream peer opens with a NAME frame whose length prefix starts with a
// zero byte, so it can never look like a request line.
func detectProtocol(conn net.Conn) (protocolType, *bufio.Reader, error) {
	reader := bufio.NewReader(conn)

	peek, err := reader.Peek(4)
	if err != nil {
		return protocolStream, reader, err
	}

	for _, method := range httpMethods {
		if bytes.HasPrefix(peek, method) {
			return protocolHTTP, reader, nil
		}
	}
	return protocolStream, reader, nil
}

// bufferedConn wraps a net.Conn with a bufio.Reader to preserve peeked data.
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (bc *bufferedConn) Read(p []byte) (int, error) {
	return bc.reader.Read(p)
}
