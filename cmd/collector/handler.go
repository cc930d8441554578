package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/events"
	"github.com/0gfoundation/0g-points-relay/internal/payment"
	"github.com/0gfoundation/0g-points-relay/internal/scheduler"
)

// newHandler logs every event and feeds payment events to the tracker.
func newHandler(tracker *payment.Tracker, m *metrics, log *zap.Logger) events.Handler {
	return events.HandlerFuncs{
		Payment: func(ctx context.Context, ev events.PaymentEvent) error {
			m.events.WithLabelValues("payment", ev.Type).Inc()
			item := ev.Item
			changed, err := tracker.Observe(ctx, &item)
			if err != nil {
				return err
			}
			if changed {
				m.advanced.Inc()
			}
			log.Info("payment event",
				zap.Uint64("sequence", ev.Sequence),
				zap.String("type", ev.Type),
				zap.String("payment", item.PaymentID),
				zap.String("purchase", item.PurchaseID),
				zap.Int("status", item.PaymentStatus),
				zap.Bool("advanced", changed),
			)
			return nil
		},
		Shop: func(_ context.Context, ev events.ShopEvent) error {
			m.events.WithLabelValues("shop", ev.Type).Inc()
			log.Info("shop event",
				zap.Uint64("sequence", ev.Sequence),
				zap.String("type", ev.Type),
				zap.String("shop", ev.Item.ShopID),
				zap.Int("status", ev.Item.Status),
			)
			return nil
		},
	}
}

type statusSource interface {
	Watermark() uint64
	Ready() bool
}

type stateSource interface {
	State() scheduler.State
}

func newRouter(collector statusSource, sched stateSource, tracker *payment.Tracker, m *metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":     collector.Ready(),
			"watermark": collector.Watermark(),
			"scheduler": sched.State().String(),
		})
	})
	r.GET("/payments", func(c *gin.Context) {
		records, err := tracker.Records(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]gin.H, 0, len(records))
		for _, rec := range records {
			out = append(out, gin.H{
				"paymentId":  rec.PaymentID,
				"purchaseId": rec.PurchaseID,
				"phase":      rec.Phase.String(),
				"status":     rec.Status,
				"updatedAt":  rec.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, out)
	})
	return r
}
