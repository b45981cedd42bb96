package iso18602

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seacert/internal/shipment"
)

func iftstaSegments(t *testing.T, doc string) []string {
	t.Helper()
	require.True(t, strings.HasSuffix(doc, segmentTerminator))
	return strings.Split(strings.TrimSuffix(doc, segmentTerminator), segmentTerminator)
}

func TestRenderIFTSTA(t *testing.T) {
	sh := exportShipment()
	doc := RenderIFTSTA(sh, exportAt)
	segments := iftstaSegments(t, doc)
	require.Len(t, segments, 6)

	ref := MessageID(sh.TrackingNumber, exportAt)
	assert.Equal(t, "UNH+"+ref+"+IFTSTA:D:00B:UN", segments[0])
	assert.Equal(t, "BGM+270+SEC-20260302-4F7A21", segments[1])
	assert.Equal(t, "DTM+137:202603160930:203", segments[2])
	assert.Equal(t, "EQD+CN+TCNU1234565", segments[3])
	assert.Equal(t, "STS+1:20", segments[4])
	assert.Equal(t, "UNT+6+"+ref, segments[5])
}

func TestRenderIFTSTAOptionalSegments(t *testing.T) {
	t.Run("without a container the eqd segment is dropped", func(t *testing.T) {
		sh := exportShipment()
		sh.Container = shipment.Container{}
		segments := iftstaSegments(t, RenderIFTSTA(sh, exportAt))
		require.Len(t, segments, 5)
		assert.Equal(t, "STS+1:20", segments[3])
		assert.True(t, strings.HasPrefix(segments[4], "UNT+5+"))
	})

	t.Run("a gps fix adds a loc segment", func(t *testing.T) {
		sh := exportShipment()
		sh.GPS = &shipment.Position{Latitude: 38.52, Longitude: -152.7, UpdatedAt: exportAt}
		segments := iftstaSegments(t, RenderIFTSTA(sh, exportAt))
		require.Len(t, segments, 7)
		assert.Equal(t, "LOC+9:38.5200:-152.7000:GPS", segments[4])
		assert.True(t, strings.HasPrefix(segments[6], "UNT+7+"))
	})

	t.Run("overlay states carry their own status codes", func(t *testing.T) {
		sh := exportShipment()
		sh.Status = shipment.StatusIncidentOpen
		doc := RenderIFTSTA(sh, exportAt)
		assert.Contains(t, doc, "STS+1:18'")
	})
}
