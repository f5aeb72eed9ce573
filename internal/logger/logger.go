// Package logger builds the zap loggers of the api and cutplan commands.
package logger

import (
	"madera-precisa/internal/domain"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "madera-precisa"

// New builds a logger for env. Production writes JSON at info level, test
// only warnings and above, anything else coloured console output at debug.
// Every entry carries the service name, env and the given fields.
func New(env string, fields ...zap.Field) (*zap.Logger, error) {
	var config zap.Config

	switch env {
	case "production":
		config = zap.NewProductionConfig()
		config.Encoding = "json"
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "test":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Always log to stdout for container compatibility
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     env,
	}

	return config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(fields...),
	)
}

type orderFields struct {
	order *domain.Order
}

func (f orderFields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("id", f.order.ID)
	enc.AddString("number", f.order.OrderNumber)
	enc.AddString("status", string(f.order.Status))
	enc.AddString("payment_status", string(f.order.PaymentStatus))
	enc.AddString("total", f.order.Total.String())
	if f.order.UserID != nil {
		enc.AddString("user_id", *f.order.UserID)
	}
	return nil
}

// Order logs the identifying fields of an order under the "order" key
func Order(order *domain.Order) zap.Field {
	return zap.Object("order", orderFields{order: order})
}
