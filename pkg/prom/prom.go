package prom

import (
	"sync"

	xhttp "github.com/healthythako/booking-service/pkg/http"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemBookings      = "booking"
	SystemPayments      = "payment"
	SystemNotifications = "notification"
	SystemRealtime      = "realtime"
)

const (
	MetricBookingTransitions     = "transitions_total"
	MetricCheckoutOutcomes       = "checkout_total"
	MetricGatewayLatency         = "gateway_request_duration_seconds"
	MetricWebhookOutcomes        = "webhook_total"
	MetricNotificationsPushed    = "pushed_total"
	MetricNotificationsPublished = "outbox_published_total"
	MetricRealtimeConnections    = "connections"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers the service metrics. Until it runs every helper below
// is a no-op, which is how tests and non-debug deployments use them.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounterVec(SystemBookings, MetricBookingTransitions, []string{"from", "to"}))
	hasError(createCounterVec(SystemPayments, MetricCheckoutOutcomes, []string{"outcome"}))
	hasError(createHistogramVec(SystemPayments, MetricGatewayLatency, []string{"operation", "outcome"}))
	hasError(createCounterVec(SystemPayments, MetricWebhookOutcomes, []string{"outcome"}))
	hasError(createCounterVec(SystemNotifications, MetricNotificationsPushed, []string{"result"}))
	hasError(createCounterVec(SystemNotifications, MetricNotificationsPublished, []string{"source"}))
	hasError(createGaugeVec(SystemRealtime, MetricRealtimeConnections, []string{"server"}))

	return err
}

func ListenAndServer(port string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "url", url)
	if err := s.ListenAndServe(port); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionCounterVec[subsystem+name] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        subsystem + " " + name,
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionCounterVec[subsystem+name])
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	MetricCollectionHistogramVec[subsystem+name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        subsystem + " " + name,
		ConstLabels: defaultLabels,
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, labels)
	return prometheus.Register(MetricCollectionHistogramVec[subsystem+name])
}

func createGaugeVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()

	MetricCollectionGaugeVec[subsystem+name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        subsystem + " " + name,
		ConstLabels: defaultLabels,
	}, labels)
	return prometheus.Register(MetricCollectionGaugeVec[subsystem+name])
}

func AddGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func IncBookingTransition(from, to string) {
	IncCounterVec(SystemBookings, MetricBookingTransitions, from, to)
}

func IncCheckoutOutcome(outcome string) {
	IncCounterVec(SystemPayments, MetricCheckoutOutcomes, outcome)
}

func ObserveGatewayLatency(operation, outcome string, seconds float64) {
	AddHistogramVec(SystemPayments, MetricGatewayLatency, seconds, operation, outcome)
}

func IncWebhookOutcome(outcome string) {
	IncCounterVec(SystemPayments, MetricWebhookOutcomes, outcome)
}

func IncNotificationPushed(result string) {
	IncCounterVec(SystemNotifications, MetricNotificationsPushed, result)
}

func IncNotificationPublished(source string) {
	IncCounterVec(SystemNotifications, MetricNotificationsPublished, source)
}

func AddRealtimeConnections(delta float64) {
	AddGaugeVec(SystemRealtime, MetricRealtimeConnections, delta, "ws")
}
