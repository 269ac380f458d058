package aws

import (
	"context"
	"log"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics emits operational counters to CloudWatch. All emission is
// best-effort: failures are logged and never surfaced to the request path.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics emitter for the given namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count emits a count-of-1 datapoint for name with optional dimensions.
// Safe to call on a nil receiver (metrics disabled).
func (m *Metrics) Count(ctx context.Context, name string, dims map[string]string) {
	if m == nil || m.client == nil {
		return
	}
	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Timestamp:  sdkaws.Time(m.nowFunc()),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
	}
	for k, v := range dims {
		key, val := k, v
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{Name: &key, Value: &val})
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		log.Printf("metrics: put %s: %v", name, err)
	}
}
