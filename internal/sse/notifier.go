package sse

import (
	"time"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// HubNotifier turns pipeline progress into hub broadcasts.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) RunStarted(run *models.SyncRun) {
	n.hub.Broadcast(runToEvent(EventRunStarted, run))
}

func (n *HubNotifier) RunFinished(run *models.SyncRun) {
	n.hub.Broadcast(runToEvent(EventRunFinished, run))
}

func (n *HubNotifier) UploadFinished(catalogID, records int, err error) {
	evt := &Event{
		Event:     EventUploadFinished,
		CatalogID: catalogID,
		Status:    string(models.PendingStatusSuccess),
		Records:   &records,
		Timestamp: time.Now(),
	}
	if err != nil {
		msg := err.Error()
		evt.Status = string(models.PendingStatusError)
		evt.Error = &msg
	}
	n.hub.Broadcast(evt)
}

func runToEvent(eventType EventType, run *models.SyncRun) *Event {
	evt := &Event{
		Event:     eventType,
		CatalogID: run.CatalogID,
		RunID:     run.ID,
		Mode:      string(run.Mode),
		Status:    string(run.Status),
		Error:     run.Error,
		Timestamp: time.Now(),
	}
	if eventType == EventRunFinished {
		valid, invalid, sent := run.Valid, run.Invalid, run.Sent
		evt.Valid, evt.Invalid, evt.Sent = &valid, &invalid, &sent
	}
	return evt
}
