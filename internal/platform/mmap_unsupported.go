//go:build !unix

package platform

func mmapCodeSegment([]byte) ([]byte, error) {
	return nil, ErrUnsupported
}

func munmapCodeSegment([]byte) error {
	return ErrUnsupported
}
