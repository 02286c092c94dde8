package parse

import (
	"os"

	"github.com/banshee-data/awbmap/internal/awb"
	"github.com/banshee-data/awbmap/internal/awb/locate"
)

// Meta summarises the document at path without a full registry-driven
// decode: file size, root tag, entry count and the alias list in document
// order.
func Meta(path string) (*awb.FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	_, rootTag, err := collect(data)
	if err != nil {
		return nil, err
	}

	meta := &awb.FileMetadata{
		Path:      path,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
		RootTag:   rootTag,
	}

	_, _, meta.HasBaseBoundary = locate.Pair(data, awb.BaseBoundaryTag)

	ix := locate.NewIndex(data)
	for _, tag := range ix.Tags() {
		meta.EntryCount++
		if _, second, ok := locate.Pair(data, tag); ok {
			if alias := locate.AliasOf(data, second); alias != "" {
				meta.Aliases = append(meta.Aliases, alias)
			}
		}
	}
	return meta, nil
}
