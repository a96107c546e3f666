package exporter

import "threadsmith-backend/lib/telemetry"

var tracer = telemetry.Tracer("threadsmith.services.exporter")
