package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// PCDType selects the data encoding of a written PCD file.
type PCDType int

const (
	// PCDAscii writes one "x y z" line per point.
	PCDAscii PCDType = 0
	// PCDBinary writes packed little-endian float32 triples.
	PCDBinary PCDType = 1
)

// Cloud coordinates are in millimetres; PCD files are conventionally in
// metres, so points are scaled on the way out and back in.
const pcdScale = 1000.0

// ToPCD writes the cloud as a PCL-compatible PCD v0.7 file with x/y/z
// fields.
func ToPCD(cloud Cloud, out io.Writer, outputType PCDType) error {
	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		len(cloud), len(cloud))
	if err != nil {
		return err
	}

	switch outputType {
	case PCDAscii:
		if _, err := fmt.Fprintf(out, "DATA ascii\n"); err != nil {
			return err
		}
		for _, p := range cloud {
			if _, err := fmt.Fprintf(out, "%f %f %f\n",
				p.X/pcdScale, p.Y/pcdScale, p.Z/pcdScale); err != nil {
				return err
			}
		}
	case PCDBinary:
		if _, err := fmt.Fprintf(out, "DATA binary\n"); err != nil {
			return err
		}
		buf := make([]byte, 12)
		for _, p := range cloud {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X/pcdScale)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y/pcdScale)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z/pcdScale)))
			if _, err := out.Write(buf); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown PCD output type %d", outputType)
	}
	return nil
}

type pcdHeader struct {
	fields string
	width  int
	points int
	data   string
}

// ReadPCD reads an x/y/z PCD file written by ToPCD (ascii or binary).
func ReadPCD(in io.Reader) (Cloud, error) {
	r := bufio.NewReader(in)
	var h pcdHeader
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading PCD header: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		switch name {
		case "FIELDS":
			h.fields = value
		case "WIDTH":
			h.width, err = strconv.Atoi(value)
		case "POINTS":
			h.points, err = strconv.Atoi(value)
		case "DATA":
			h.data = value
		}
		if err != nil {
			return nil, fmt.Errorf("bad PCD header line %q: %v", line, err)
		}
		if h.data != "" {
			break
		}
	}

	if h.fields != "x y z" {
		return nil, fmt.Errorf("unsupported PCD fields %q, want \"x y z\"", h.fields)
	}

	cloud := make(Cloud, 0, h.points)
	switch h.data {
	case "ascii":
		for i := 0; i < h.points; i++ {
			line, err := r.ReadString('\n')
			if err != nil {
				return nil, fmt.Errorf("reading PCD point %d: %v", i, err)
			}
			parts := strings.Fields(line)
			if len(parts) != 3 {
				return nil, fmt.Errorf("PCD point %d: %d fields, want 3", i, len(parts))
			}
			var v [3]float64
			for j, s := range parts {
				if v[j], err = strconv.ParseFloat(s, 64); err != nil {
					return nil, fmt.Errorf("PCD point %d: %v", i, err)
				}
			}
			cloud = append(cloud, Point{X: v[0] * pcdScale, Y: v[1] * pcdScale, Z: v[2] * pcdScale})
		}
	case "binary":
		buf := make([]byte, 12)
		for i := 0; i < h.points; i++ {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("reading PCD point %d: %v", i, err)
			}
			cloud = append(cloud, Point{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))) * pcdScale,
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))) * pcdScale,
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))) * pcdScale,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported PCD data encoding %q", h.data)
	}
	return cloud, nil
}
