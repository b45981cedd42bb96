package iso18602

import (
	"fmt"
	"strings"
	"time"

	"seacert/internal/shipment"
)

// EDIFACT separators per UN/EDIFACT default service characters.
const (
	segmentTerminator = "'"
	elementSep        = "+"
	componentSep      = ":"
)

// iftstaStatusCodes maps lifecycle states onto EDIFACT status codes for the
// STS segment.
var iftstaStatusCodes = map[shipment.Status]string{
	shipment.StatusPlanning:           "1",
	shipment.StatusRiskAssessed:       "5",
	shipment.StatusPreShipmentReady:   "10",
	shipment.StatusInTransit:          "20",
	shipment.StatusArrivedDestination: "21",
	shipment.StatusCustomsCleared:     "24",
	shipment.StatusReleased:           "30",
	shipment.StatusClosed:             "34",
	shipment.StatusDelayed:            "17",
	shipment.StatusIncidentOpen:       "18",
	shipment.StatusCancelled:          "0",
}

// RenderIFTSTA produces the EDIFACT IFTSTA interchange for the shipment.
// Segment order: UNH, BGM, DTM, optional EQD, optional LOC, STS, UNT.
func RenderIFTSTA(sh *shipment.Shipment, at time.Time) string {
	ref := MessageID(sh.TrackingNumber, at)
	var segments []string

	segments = append(segments,
		seg("UNH", ref, join("IFTSTA", "D", "00B", "UN")),
		seg("BGM", "270", sh.TrackingNumber),
		seg("DTM", join("137", at.UTC().Format("200601021504"), "203")),
	)
	if sh.Container.Number != "" {
		segments = append(segments, seg("EQD", "CN", sh.Container.Number))
	}
	// The place qualifier rides in one composite with the coordinates,
	// matching the receiving system's published layout.
	if sh.GPS != nil {
		segments = append(segments, seg("LOC",
			join("9", coord(sh.GPS.Latitude), coord(sh.GPS.Longitude), "GPS")))
	}
	segments = append(segments, seg("STS", join("1", iftstaStatusCodes[sh.Status])))

	// UNT counts every segment including itself and UNH.
	segments = append(segments, seg("UNT", fmt.Sprintf("%d", len(segments)+1), ref))

	return strings.Join(segments, "")
}

func seg(tag string, elements ...string) string {
	return tag + elementSep + strings.Join(elements, elementSep) + segmentTerminator
}

func join(components ...string) string {
	return strings.Join(components, componentSep)
}

func coord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
