package inspect

import "github.com/OpenBayHQ/openbay-mvp/pkg/metrics"

type serviceMetrics struct {
	started         *metrics.Counter
	submitted       *metrics.Counter
	approved        *metrics.Counter
	voided          *metrics.Counter
	answersRecorded *metrics.Counter
	publishErrors   *metrics.Counter
}

func newServiceMetrics(reg *metrics.Registry) serviceMetrics {
	return serviceMetrics{
		started:         reg.Counter("vhc_inspections_started_total", "Inspections started"),
		submitted:       reg.Counter("vhc_inspections_submitted_total", "Inspections submitted"),
		approved:        reg.Counter("vhc_inspections_approved_total", "Inspections approved"),
		voided:          reg.Counter("vhc_inspections_voided_total", "Inspections voided"),
		answersRecorded: reg.Counter("vhc_answers_recorded_total", "Answers recorded"),
		publishErrors:   reg.Counter("vhc_event_publish_errors_total", "Event publish failures"),
	}
}
