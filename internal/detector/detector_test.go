package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/watchtower/controlplane/internal/model"
)

func TestShouldAppend(t *testing.T) {
	tests := []struct {
		name  string
		kind  model.MonitorKind
		fresh *model.UptimeEvent
		last  *model.UptimeEvent
		want  bool
	}{
		{
			name:  "no prior event, web up",
			kind:  model.KindWeb,
			fresh: &model.UptimeEvent{Availability: model.Up},
			last:  nil,
			want:  true,
		},
		{
			name:  "no prior event, web down",
			kind:  model.KindWeb,
			fresh: &model.UptimeEvent{Availability: model.Down},
			last:  nil,
			want:  true,
		},
		{
			name:  "same state, web up twice",
			kind:  model.KindWeb,
			fresh: &model.UptimeEvent{Availability: model.Up},
			last:  &model.UptimeEvent{Availability: model.Up},
			want:  false,
		},
		{
			name:  "transition up to down",
			kind:  model.KindWeb,
			fresh: &model.UptimeEvent{Availability: model.Down},
			last:  &model.UptimeEvent{Availability: model.Up},
			want:  true,
		},
		{
			name:  "ping same state",
			kind:  model.KindPing,
			fresh: &model.UptimeEvent{Ping: model.Reachable},
			last:  &model.UptimeEvent{Ping: model.Reachable},
			want:  false,
		},
		{
			name:  "port transition",
			kind:  model.KindPort,
			fresh: &model.UptimeEvent{Port: model.Closed},
			last:  &model.UptimeEvent{Port: model.Open},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldAppend(tt.kind, tt.fresh, tt.last)
			assert.Equal(t, tt.want, got)
		})
	}
}
