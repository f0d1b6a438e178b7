/*
 * MIT License
 *
 * Copyright (c) 2026 rpmsgsock contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package rpmsg

import (
	"encoding/binary"
	"fmt"
)

// Frame commands. The wire format is little-endian, packed, no padding,
// mirroring the reference driver's frame headers exactly. It is encoded
// directly with encoding/binary rather than a self-describing codec (see
// DESIGN.md): the header widths and ordering are part of the external
// contract, not an implementation detail we are free to renegotiate.
const (
	cmdSync uint32 = 1
	cmdData uint32 = 2
)

const (
	syncHeaderLen = 4 + 4 + 4 + 4 + 4 // cmd, size, pid, uid, gid
	dataHeaderLen = 4 + 4 + 4         // cmd, pos, len
	dgramLenLen   = 4                 // u32 dglen prefix for datagrams
)

// Ucred mirrors struct ucred: the peer credentials carried in SYNC.
type Ucred struct {
	PID uint32
	UID uint32
	GID uint32
}

type syncFrame struct {
	Size uint32
	Cred Ucred
}

func encodeSync(size uint32, cred Ucred) []byte {
	buf := make([]byte, syncHeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], cmdSync)
	binary.LittleEndian.PutUint32(buf[4:8], size)
	binary.LittleEndian.PutUint32(buf[8:12], cred.PID)
	binary.LittleEndian.PutUint32(buf[12:16], cred.UID)
	binary.LittleEndian.PutUint32(buf[16:20], cred.GID)
	return buf
}

func decodeSync(b []byte) (syncFrame, error) {
	if len(b) < syncHeaderLen {
		return syncFrame{}, fmt.Errorf("%w: short SYNC frame (%d bytes)", ErrInvalid, len(b))
	}
	return syncFrame{
		Size: binary.LittleEndian.Uint32(b[4:8]),
		Cred: Ucred{
			PID: binary.LittleEndian.Uint32(b[8:12]),
			UID: binary.LittleEndian.Uint32(b[12:16]),
			GID: binary.LittleEndian.Uint32(b[16:20]),
		},
	}, nil
}

type dataFrame struct {
	Pos     uint32
	Len     uint32
	Payload []byte
}

// encodeDataHeader writes only the header (cmd, pos, len) into dst[0:12];
// the caller fills the payload separately so a single TX buffer can be
// filled without an intermediate copy.
func encodeDataHeader(dst []byte, pos, length uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], cmdData)
	binary.LittleEndian.PutUint32(dst[4:8], pos)
	binary.LittleEndian.PutUint32(dst[8:12], length)
}

func decodeData(b []byte) (dataFrame, error) {
	if len(b) < dataHeaderLen {
		return dataFrame{}, fmt.Errorf("%w: short DATA frame (%d bytes)", ErrInvalid, len(b))
	}
	return dataFrame{
		Pos:     binary.LittleEndian.Uint32(b[4:8]),
		Len:     binary.LittleEndian.Uint32(b[8:12]),
		Payload: b[dataHeaderLen:],
	}, nil
}

// frameCmd peeks the 4-byte command discriminator without decoding the rest
// of the frame.
func frameCmd(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: frame shorter than command header", ErrInvalid)
	}
	return binary.LittleEndian.Uint32(b[0:4]), nil
}
