package job

import (
	"strconv"
	"strings"
)

// MetadataMap is the parsed form of a Candidate's metadata string: keys map
// to either an int64 (when the value parses as an integer) or a string.
type MetadataMap map[string]any

// ParseMetadata parses a candidate metadata string ("" or ",k=v,k=v...")
// into a MetadataMap. Built on demand, only when filtering is in play.
func ParseMetadata(metadata string) MetadataMap {
	mm := MetadataMap{}
	metadata = strings.TrimPrefix(metadata, ",")
	if metadata == "" {
		return mm
	}
	for _, pair := range strings.Split(metadata, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			mm[k] = n
		} else {
			mm[k] = v
		}
	}
	return mm
}

// FILTERMissingMetadataKey is the annotation key attached to candidates
// that matched a filter only because one or more predicate keys were
// absent from their metadata.
const FILTERMissingMetadataKey = "FILTER_MISSING_METADATA"

// AppendMissingAnnotation appends a FILTER_MISSING_METADATA=<key;key...>
// entry to an existing metadata string.
func AppendMissingAnnotation(metadata string, missing []string) string {
	annotation := FILTERMissingMetadataKey + "=" + strings.Join(missing, ";")
	if metadata == "" {
		return "," + annotation
	}
	return metadata + "," + annotation
}
