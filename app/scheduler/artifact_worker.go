// Package scheduler contains background workers for deferred processing
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/fatoora-io/fatoora/app/services"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	artifactsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_artifacts_rendered_total",
			Help: "Invoice artifact render attempts by outcome",
		},
		[]string{"outcome"},
	)

	artifactQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "invoice_artifact_queue_depth",
			Help: "Number of invoices waiting for artifact rendering",
		},
	)
)

const sweepBatchSize = 50

// ArtifactWorker renders invoice PDFs and QR codes off the request path.
// New invoices arrive through Enqueue; a periodic sweep retries any invoice
// whose artifacts are still missing, so a dropped or failed job heals itself.
type ArtifactWorker struct {
	invoiceRepo   repository.InvoiceRepository
	userRepo      repository.UserRepository
	qrService     services.QRService
	pdfService    services.PDFService
	jobs          chan uint
	sweepInterval time.Duration
	logger        *log.Logger
}

// NewArtifactWorker creates a new artifact worker instance
func NewArtifactWorker(
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	qrService services.QRService,
	pdfService services.PDFService,
	queueSize int,
	sweepInterval time.Duration,
	logger *log.Logger,
) *ArtifactWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ArtifactWorker{
		invoiceRepo:   invoiceRepo,
		userRepo:      userRepo,
		qrService:     qrService,
		pdfService:    pdfService,
		jobs:          make(chan uint, queueSize),
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

// Enqueue schedules an invoice for rendering. It never blocks: when the
// queue is full the job is dropped and the next sweep picks the invoice up.
func (w *ArtifactWorker) Enqueue(invoiceID uint) {
	select {
	case w.jobs <- invoiceID:
		artifactQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.logger.Printf("artifact worker: queue full, invoice id=%d deferred to sweep", invoiceID)
	}
}

// Start launches the worker loop in a background goroutine and returns a stop function
func (w *ArtifactWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()

		w.sweep(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case invoiceID := <-w.jobs:
				artifactQueueDepth.Set(float64(len(w.jobs)))
				w.render(ctx, invoiceID)
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()

	return cancel
}

// sweep retries every invoice still missing a PDF or QR code
func (w *ArtifactWorker) sweep(ctx context.Context) {
	pending, err := w.invoiceRepo.ListMissingArtifacts(ctx, sweepBatchSize)
	if err != nil {
		w.logger.Printf("artifact worker: sweep query failed: %v", err)
		return
	}

	for _, inv := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.render(ctx, inv.ID)
	}
}

func (w *ArtifactWorker) render(ctx context.Context, invoiceID uint) {
	invoice, err := w.invoiceRepo.ByID(ctx, invoiceID)
	if err != nil {
		w.logger.Printf("artifact worker: fetch invoice id=%d failed: %v", invoiceID, err)
		artifactsRenderedTotal.WithLabelValues("error").Inc()
		return
	}
	if invoice == nil {
		// Deleted before rendering caught up
		return
	}
	if invoice.HasPDF() && invoice.HasQRCode() {
		return
	}

	owner, err := w.userRepo.ByID(ctx, invoice.UserID)
	if err != nil || owner == nil {
		w.logger.Printf("artifact worker: fetch owner for invoice %s failed: %v", invoice.InvoiceNumber, err)
		artifactsRenderedTotal.WithLabelValues("error").Inc()
		return
	}

	qrContent := invoice.InvoiceNumber
	if invoice.PaymentLink != nil && *invoice.PaymentLink != "" {
		qrContent = *invoice.PaymentLink
	}

	qrPath, err := w.qrService.GeneratePaymentQR(qrContent, invoice.InvoiceNumber)
	if err != nil {
		w.logger.Printf("artifact worker: qr render for invoice %s failed: %v", invoice.InvoiceNumber, err)
		artifactsRenderedTotal.WithLabelValues("error").Inc()
		return
	}

	pdfPath, err := w.pdfService.RenderInvoice(invoice, owner, qrPath)
	if err != nil {
		w.logger.Printf("artifact worker: pdf render for invoice %s failed: %v", invoice.InvoiceNumber, err)
		artifactsRenderedTotal.WithLabelValues("error").Inc()
		return
	}

	if err := w.invoiceRepo.UpdateArtifactPaths(ctx, invoice.ID, &pdfPath, &qrPath); err != nil {
		w.logger.Printf("artifact worker: persist artifact paths for invoice %s failed: %v", invoice.InvoiceNumber, err)
		artifactsRenderedTotal.WithLabelValues("error").Inc()
		return
	}

	artifactsRenderedTotal.WithLabelValues("success").Inc()
}
