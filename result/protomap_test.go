package result

import (
	"testing"

	"github.com/graphkit-io/graphkit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestProtoMapperNodeProperties(t *testing.T) {
	n := fakeNode{id: 1, props: map[string]any{"value": "hello"}}

	mapper := ProtoMapper(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})

	msg, err := mapper(NewNodePath(n))
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.GetValue())
}

func TestProtoMapperRelationshipProperties(t *testing.T) {
	rel := fakeRelationship{
		id:    2,
		typ:   "KNOWS",
		start: fakeNode{id: 1, props: map[string]any{"value": "start"}},
		end:   fakeNode{id: 3, props: map[string]any{"value": "end"}},
		props: map[string]any{"value": "rel"},
	}

	mapper := ProtoMapper(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})

	msg, err := mapper(NewRelationshipPath(rel))
	require.NoError(t, err)
	assert.Equal(t, "rel", msg.GetValue(),
		"a relationship-rooted path maps the relationship's own properties")
}

func TestProtoMapperNumericConversion(t *testing.T) {
	// Stores hand integers back as int64 regardless of field width.
	n := fakeNode{id: 1, props: map[string]any{
		"seconds": int64(120),
		"nanos":   int64(500),
	}}

	mapper := ProtoMapper(func() *timestamppb.Timestamp {
		return &timestamppb.Timestamp{}
	})

	msg, err := mapper(NewNodePath(n))
	require.NoError(t, err)
	assert.Equal(t, int64(120), msg.GetSeconds())
	assert.Equal(t, int32(500), msg.GetNanos())
}

func TestProtoMapperIgnoresUnknownAndNilProperties(t *testing.T) {
	n := fakeNode{id: 1, props: map[string]any{
		"value":    "kept",
		"unknown":  "dropped",
		"nanos":    nil,
		"whatever": 42,
	}}

	mapper := ProtoMapper(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})

	msg, err := mapper(NewNodePath(n))
	require.NoError(t, err)
	assert.Equal(t, "kept", msg.GetValue())
}

func TestProtoMapperTypeMismatch(t *testing.T) {
	n := fakeNode{id: 1, props: map[string]any{"value": true}}

	mapper := ProtoMapper(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})

	_, err := mapper(NewNodePath(n))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "value"`)
}

func TestProtoMapperInt32Overflow(t *testing.T) {
	n := fakeNode{id: 1, props: map[string]any{"nanos": int64(1) << 40}}

	mapper := ProtoMapper(func() *timestamppb.Timestamp {
		return &timestamppb.Timestamp{}
	})

	_, err := mapper(NewNodePath(n))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows int32")
}

func TestProtoMapperSkipsCollectionFields(t *testing.T) {
	// structpb.Struct's only field is a map; a same-named scalar
	// property must be ignored, not rejected.
	n := fakeNode{id: 1, props: map[string]any{"fields": "not a map"}}

	mapper := ProtoMapper(func() *structpb.Struct {
		return &structpb.Struct{}
	})

	msg, err := mapper(NewNodePath(n))
	require.NoError(t, err)
	assert.Empty(t, msg.GetFields())
}

func TestProtoMapperInSequence(t *testing.T) {
	cursor := &fakeCursor{entities: []store.Entity{
		fakeNode{id: 1, props: map[string]any{"value": "a"}},
		fakeNode{id: 2, props: map[string]any{"value": "b"}},
	}}

	seq := MapNodes(cursor, ProtoMapper(func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	}))
	defer seq.Close()

	var got []string
	for seq.Next() {
		got = append(got, seq.Value().GetValue())
	}
	require.NoError(t, seq.Err())
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestProtoMapperNilFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { ProtoMapper[*wrapperspb.StringValue](nil) })
}

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"already", "already"},
		{"created_at", "createdAt"},
		{"start_node_id", "startNodeId"},
		{"trailing_", "trailing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snakeToCamel(tt.in), tt.in)
	}
}
