// Package notifications persists per-user notifications and pushes them
// over the relay bus. Dispatch is fire-and-forget: a failed notification
// never fails the operation that triggered it.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/pkg/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// dataSchema constrains the free-form Data payload attached to a
// notification. Values are scalar so clients can render them directly.
const dataSchema = `{
	"type": "object",
	"maxProperties": 16,
	"additionalProperties": {
		"type": ["string", "number", "boolean", "null"]
	}
}`

var dataSchemaCompiled *jsonschema.Schema

func init() {
	compiled, err := compileSchema(dataSchema)
	if err != nil {
		panic(fmt.Sprintf("failed to compile notification data schema: %v", err))
	}
	dataSchemaCompiled = compiled
}

func compileSchema(schema string) (*jsonschema.Schema, error) {
	if !gjson.Valid(schema) {
		return nil, fmt.Errorf("invalid JSON schema")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schema)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

// Dispatcher writes notification records and publishes them to the
// target's relay topic.
type Dispatcher struct {
	store          db.NotificationStore
	bus            *bus.Bus
	publishTimeout time.Duration
}

// NewDispatcher wires a dispatcher over a store and relay bus.
func NewDispatcher(store db.NotificationStore, b *bus.Bus, publishTimeout time.Duration) *Dispatcher {
	if publishTimeout <= 0 {
		publishTimeout = 100 * time.Millisecond
	}
	return &Dispatcher{
		store:          store,
		bus:            b,
		publishTimeout: publishTimeout,
	}
}

// Notify validates, persists, and pushes the notification. Errors are
// logged and swallowed; the caller's operation has already succeeded and
// must not be rolled back over a notification.
func (d *Dispatcher) Notify(ctx context.Context, n *models.Notification) {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	if len(n.Data) > 0 {
		var payload any
		if err := json.Unmarshal(n.Data, &payload); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("type", string(n.Type)).Msg("notification data is not valid JSON, dropping")
			return
		}
		if err := dataSchemaCompiled.Validate(payload); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("type", string(n.Type)).Msg("notification data failed schema validation, dropping")
			return
		}
	}

	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("type", string(n.Type)).Msg("failed to persist notification")
		return
	}

	frame, err := json.Marshal(api.Frame{
		Event: api.EventNotificationNew,
		Data:  mustMarshal(n),
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to encode notification frame")
		return
	}

	d.bus.Publish(bus.Message{
		Topic:   bus.UserTopic(n.UserID.String()),
		Event:   api.EventNotificationNew,
		Payload: frame,
	}, d.publishTimeout)
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
