package threads

import (
	"threadsmith-backend/lib/restyutil"
	"threadsmith-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("threadsmith.lib.scrapers.threads")
var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
