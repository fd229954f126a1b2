package domain

import "time"

// ActivityKind names a community activity published to integrations.
type ActivityKind string

const (
	ActivityMemberSignedUp ActivityKind = "member.signed_up"
	ActivitySpaceJoined    ActivityKind = "space.joined"
	ActivityPostCreated    ActivityKind = "post.created"
	ActivityEventCreated   ActivityKind = "event.created"
)

type Activity struct {
	Kind       ActivityKind      `json:"kind"`
	ActorID    string            `json:"actor_id,omitempty"`
	SubjectID  string            `json:"subject_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
