package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

func CompressLz4(src []byte, output *bytes.Buffer) error {
	zw := lz4.NewWriter(output)

	if _, err := zw.Write(src); err != nil {
		return err
	}

	flushErr := zw.Flush()
	if flushErr != nil {
		return flushErr
	}

	return zw.Close()
}

// DecompressLz4 inflates an lz4 frame that must hold exactly rawSize bytes.
func DecompressLz4(src []byte, rawSize int) ([]byte, error) {
	out := make([]byte, rawSize)
	if err := DecompressLz4Into(src, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecompressLz4Into fills out with the frame contents, the frame must hold exactly len(out) bytes.
func DecompressLz4Into(src []byte, out []byte) error {
	zr := lz4.NewReader(bytes.NewReader(src))

	if _, err := io.ReadFull(zr, out); err != nil {
		return fmt.Errorf("unable to decompress lz4 frame: %s", err.Error())
	}

	// trailing data means the size in the header lied
	var probe [1]byte
	if n, _ := zr.Read(probe[:]); n != 0 {
		return fmt.Errorf("lz4 frame holds more than %d bytes", len(out))
	}

	return nil
}
