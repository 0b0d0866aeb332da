package config

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a loaded data image. The first word of every image must
// equal it.
const Magic = 0xAD130AD6

// TableVersion is the region table layout this package writes and accepts.
const TableVersion = 1

const headerWords = 2 // magic, version

// RegionTable is the index at the front of a data image: a magic word, a
// layout version, and one offset per region. Offsets are bytes from the
// start of the image; regions run to the next non-zero offset or the image
// end. A zero offset marks an absent region.
type RegionTable struct {
	Version uint32
	Offsets []uint32
}

// ParseRegionTable reads a table with n region slots from the front of an
// image.
func ParseRegionTable(image []byte, n int) (*RegionTable, error) {
	need := (headerWords + n) * 4
	if len(image) < need {
		return nil, fmt.Errorf("config: image too short for %d-region table: %d bytes, need %d", n, len(image), need)
	}
	if m := binary.LittleEndian.Uint32(image[0:4]); m != Magic {
		return nil, fmt.Errorf("config: bad magic %#08x, want %#08x", m, Magic)
	}
	t := &RegionTable{
		Version: binary.LittleEndian.Uint32(image[4:8]),
		Offsets: make([]uint32, n),
	}
	if t.Version != TableVersion {
		return nil, fmt.Errorf("config: unsupported region table version %d", t.Version)
	}
	for i := 0; i < n; i++ {
		off := binary.LittleEndian.Uint32(image[(headerWords+i)*4:])
		if off != 0 && int(off) > len(image) {
			return nil, fmt.Errorf("config: region %d offset %d beyond image end %d", i, off, len(image))
		}
		t.Offsets[i] = off
	}
	return t, nil
}

// Region returns region i's bytes within image, or nil if the region is
// absent.
func (t *RegionTable) Region(image []byte, i int) []byte {
	off := t.Offsets[i]
	if off == 0 {
		return nil
	}
	end := uint32(len(image))
	for _, next := range t.Offsets[i+1:] {
		if next != 0 {
			end = next
			break
		}
	}
	return image[off:end]
}

// EncodeRegionTable builds an image from the given regions, laying them
// back-to-back after the table. Empty regions get a zero offset.
func EncodeRegionTable(regions [][]byte) []byte {
	headerLen := (headerWords + len(regions)) * 4
	total := headerLen
	for _, r := range regions {
		total += len(r)
	}

	image := make([]byte, headerLen, total)
	binary.LittleEndian.PutUint32(image[0:4], Magic)
	binary.LittleEndian.PutUint32(image[4:8], TableVersion)

	off := headerLen
	for i, r := range regions {
		if len(r) == 0 {
			continue
		}
		binary.LittleEndian.PutUint32(image[(headerWords+i)*4:], uint32(off))
		off += len(r)
	}
	for _, r := range regions {
		image = append(image, r...)
	}
	return image
}
