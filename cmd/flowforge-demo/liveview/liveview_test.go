package liveview

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// The websocket handshake/ping-pong loop is the externalmost network layer
// and isn't exercised here, matching the teacher's own testing boundary
// (tabular/server has no handler-level tests either); see DESIGN.md.

func TestUpdateMarshalsTheFieldsAClientExpects(t *testing.T) {
	Convey("Given an Update with a best genome attached", t, func() {
		u := Update{FracComplete: 0.5, Generation: 3, BestName: "delaymultiplier", BestDna: []byte(`{"multiplier":1.2}`)}

		buf, err := json.Marshal(u)
		So(err, ShouldBeNil)

		var decoded map[string]interface{}
		So(json.Unmarshal(buf, &decoded), ShouldBeNil)
		So(decoded["fracComplete"], ShouldEqual, 0.5)
		So(decoded["generation"], ShouldEqual, float64(3))
		So(decoded["bestName"], ShouldEqual, "delaymultiplier")
	})
}

func TestUpdateOmitsEmptyBestFields(t *testing.T) {
	Convey("Given a zero-value Update", t, func() {
		buf, err := json.Marshal(Update{})
		So(err, ShouldBeNil)

		var decoded map[string]interface{}
		So(json.Unmarshal(buf, &decoded), ShouldBeNil)

		Convey("bestName and bestDna are omitted rather than sent as empty values", func() {
			_, hasName := decoded["bestName"]
			_, hasDna := decoded["bestDna"]
			So(hasName, ShouldBeFalse)
			So(hasDna, ShouldBeFalse)
		})
	})
}

func TestNewServerWiresTheUpdatesChannel(t *testing.T) {
	Convey("Given a fresh updates channel", t, func() {
		updates := make(chan Update, 1)
		srv := NewServer(":0", updates)
		So(srv, ShouldNotBeNil)
		So(srv.addr, ShouldEqual, ":0")
		So(srv.updates == (<-chan Update)(updates), ShouldBeTrue)
	})
}
