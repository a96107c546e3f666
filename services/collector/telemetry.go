package collector

import "threadsmith-backend/lib/telemetry"

var tracer = telemetry.Tracer("threadsmith.services.collector")
