package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Pool is the Go memory allocator used by Arrow.
var Pool = memory.NewGoAllocator()

// TimestampMS is the column type used for converted posting times. The
// millisecond unit is carried in the type rather than assumed by callers.
var TimestampMS = arrow.FixedWidthTypes.Timestamp_ms.(*arrow.TimestampType)

// StringSchema builds an all-nullable-string schema for the given column
// names. Source CSV columns enter the pipeline untyped; later stages parse
// values lazily.
func StringSchema(names []string) *arrow.Schema {
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}
