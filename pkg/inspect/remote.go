package inspect

import (
	"context"
	"errors"
	"fmt"

	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// ManagementClient is the management protocol surface the remote inspector
// uses. It is implemented by interaction.Client.
type ManagementClient interface {
	GetParameterValues(ctx context.Context, paths ...string) ([]wire.Value, error)
	SetParameterValues(ctx context.Context, key string, values ...wire.Value) error
	GetParameterNames(ctx context.Context, path string, nextLevel bool) ([]wire.NameEntry, error)
	GetParameterAttributes(ctx context.Context, paths ...string) ([]wire.Attribute, error)
	SetParameterAttributes(ctx context.Context, attrs ...wire.SetAttribute) error
	AddObject(ctx context.Context, path, key string) (uint32, error)
	DeleteObject(ctx context.Context, path, key string) error
}

// RemoteInspector provides inspection and mutation capabilities for a
// tree behind a management client. Values are typed with the local schema
// before they are sent.
type RemoteInspector struct {
	client ManagementClient
	def    *model.ObjectDef
	key    string
}

// NewRemoteInspector creates a new remote inspector. def is the schema the
// remote tree is built from.
func NewRemoteInspector(client ManagementClient, def *model.ObjectDef) *RemoteInspector {
	return &RemoteInspector{
		client: client,
		def:    def,
	}
}

// SetParameterKey sets the key sent with every write.
func (r *RemoteInspector) SetParameterKey(key string) {
	r.key = key
}

// ReadParameter reads a single parameter.
func (r *RemoteInspector) ReadParameter(ctx context.Context, path string) (model.ParameterValue, error) {
	if IsPartial(path) {
		return model.ParameterValue{}, fmt.Errorf("%w: %s", ErrNotParameter, path)
	}
	values, err := r.client.GetParameterValues(ctx, path)
	if err != nil {
		return model.ParameterValue{}, err
	}
	if len(values) != 1 {
		return model.ParameterValue{}, errors.New("parameter not found in response")
	}
	return values[0].ToModel()
}

// ReadAll reads every parameter beneath the object at path.
func (r *RemoteInspector) ReadAll(ctx context.Context, path string) ([]model.ParameterValue, error) {
	values, err := r.client.GetParameterValues(ctx, model.ObjectPath(path))
	if err != nil {
		return nil, err
	}
	return wire.ToModelValues(values)
}

// WriteParameter parses s as the parameter's schema type and writes it.
func (r *RemoteInspector) WriteParameter(ctx context.Context, path, s string) error {
	pd, ok := ParameterDef(r.def, path)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownParameter, path)
	}
	v, err := pd.Type.Parse(s)
	if err != nil {
		return err
	}
	return r.client.SetParameterValues(ctx, r.key, wire.FromModel(model.ParameterValue{Path: path, Type: pd.Type, Value: v}))
}

// Names lists the immediate children of the object at path.
func (r *RemoteInspector) Names(ctx context.Context, path string) ([]wire.NameEntry, error) {
	return r.client.GetParameterNames(ctx, model.ObjectPath(path), true)
}

// Notification reads the notification attribute of a parameter.
func (r *RemoteInspector) Notification(ctx context.Context, path string) (model.Notification, error) {
	attrs, err := r.client.GetParameterAttributes(ctx, path)
	if err != nil {
		return model.NotificationOff, err
	}
	if len(attrs) != 1 {
		return model.NotificationOff, errors.New("attribute not found in response")
	}
	return model.Notification(attrs[0].Notification), nil
}

// SetNotification parses level and applies it to path.
func (r *RemoteInspector) SetNotification(ctx context.Context, path, level string) error {
	n, err := model.ParseNotification(level)
	if err != nil {
		return err
	}
	return r.client.SetParameterAttributes(ctx, wire.SetAttribute{Path: path, NotificationChange: true, Notification: uint8(n)})
}

// AddObject adds a row to the table at path and returns the row path.
func (r *RemoteInspector) AddObject(ctx context.Context, path string) (string, error) {
	id, err := r.client.AddObject(ctx, model.ObjectPath(path), r.key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d.", model.ObjectPath(path), id), nil
}

// DeleteObject deletes the row at path.
func (r *RemoteInspector) DeleteObject(ctx context.Context, path string) error {
	return r.client.DeleteObject(ctx, model.ObjectPath(path), r.key)
}
