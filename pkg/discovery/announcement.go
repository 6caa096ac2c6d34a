// SPDX-FileCopyrightText: 2020 Markus Sommer
// SPDX-FileCopyrightText: 2020, 2021 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package discovery

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"

	"github.com/dtn7/dtn7-ble/pkg/bpv7"
)

// Announcement advertises a node's EID and the CLA address it can be
// reached at. Unlike the wider Bundle Protocol's CLA registry, this package
// does not care which transport the address belongs to — that is for the
// CLA layer above it to resolve.
type Announcement struct {
	Endpoint bpv7.EndpointID
	Address  string
}

// UnmarshalAnnouncements creates a new array of Announcement based on a CBOR byte string.
func UnmarshalAnnouncements(data []byte) (announcements []Announcement, err error) {
	buff := bytes.NewBuffer(data)

	l, err := cboring.ReadArrayLength(buff)
	if err != nil {
		return nil, err
	}
	announcements = make([]Announcement, l)

	for i := 0; i < len(announcements); i++ {
		if cErr := cboring.Unmarshal(&announcements[i], buff); cErr != nil {
			return nil, fmt.Errorf("unmarshalling Announcement %d failed: %v", i, cErr)
		}
	}

	return announcements, nil
}

// MarshalAnnouncements into a CBOR byte string.
func MarshalAnnouncements(announcements []Announcement) (data []byte, err error) {
	buff := new(bytes.Buffer)

	if err := cboring.WriteArrayLength(uint64(len(announcements)), buff); err != nil {
		return nil, err
	}

	for i := range announcements {
		announcement := announcements[i]
		if err := cboring.Marshal(&announcement, buff); err != nil {
			return nil, fmt.Errorf("marshalling Announcement %d (%v) failed: %v", i, announcement, err)
		}
	}

	return buff.Bytes(), nil
}

// MarshalCbor creates a CBOR representation for an Announcement.
func (announcement *Announcement) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	if err := cboring.Marshal(&announcement.Endpoint, w); err != nil {
		return fmt.Errorf("marshalling endpoint failed: %v", err)
	}
	return cboring.WriteTextString(announcement.Address, w)
}

// UnmarshalCbor creates an Announcement from its CBOR representation.
func (announcement *Announcement) UnmarshalCbor(r io.Reader) error {
	l, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("wrong array length: %d instead of 2", l)
	}

	if err := cboring.Unmarshal(&announcement.Endpoint, r); err != nil {
		return fmt.Errorf("unmarshalling endpoint failed: %v", err)
	}

	addr, err := cboring.ReadTextString(r)
	if err != nil {
		return err
	}
	announcement.Address = addr

	return nil
}

func (announcement Announcement) String() string {
	return fmt.Sprintf("Announcement(%v,%s)", announcement.Endpoint, announcement.Address)
}
