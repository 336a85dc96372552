package recommend

// RequestStatus is the lifecycle state of a recommendation request.
// Values are persisted, so the numbering is fixed.
type RequestStatus int

const (
	StatusPending   RequestStatus = 0 // created, emailed by the dispatcher after the cooldown
	StatusSent      RequestStatus = 1
	StatusDeclined  RequestStatus = 2 // reserved, no transition leads here
	StatusCompleted RequestStatus = 3
	StatusRejected  RequestStatus = 4
	StatusAccepted  RequestStatus = 5
)

var statusKeys = map[RequestStatus]string{
	StatusPending:   "pending",
	StatusSent:      "sent",
	StatusDeclined:  "declined",
	StatusCompleted: "completed",
	StatusRejected:  "rejected",
	StatusAccepted:  "accepted",
}

var statusLabels = map[RequestStatus]string{
	StatusPending:   "Scheduled",
	StatusSent:      "Recommendation request sent",
	StatusDeclined:  "Recommendation request declined",
	StatusCompleted: "Recommendation completed",
	StatusRejected:  "Recommendation rejected",
	StatusAccepted:  "Recommendation accepted",
}

func (s RequestStatus) String() string {
	if k, ok := statusKeys[s]; ok {
		return k
	}
	return "unknown"
}

// Label is the human readable status used in messages and outlines.
func (s RequestStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Submitted reports whether the recommender has already filled the form.
func (s RequestStatus) Submitted() bool { return s > StatusSent }

func AllStatuses() []RequestStatus {
	return []RequestStatus{StatusPending, StatusSent, StatusDeclined, StatusCompleted, StatusRejected, StatusAccepted}
}
