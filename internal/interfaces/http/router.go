package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/catalog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dispensing"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/purchase"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MedicationUC    *catalog.MedicationUseCase
	PurchaseUC      *purchase.PurchaseUseCase
	AllocateUC      *allocation.AllocateUseCase
	DispenseUC      *dispensing.DispenseUseCase
	TransferUC      *transfer.TransferUseCase
	AuditQuery      *ledger.AuditQuery
	JWTSecret       string
	DefaultLocation string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	storekeeper := RequireRole(jwt.RoleStorekeeper)
	approver := RequireRole(jwt.RoleApprover)
	pharmacist := RequireRole(jwt.RolePharmacist)
	stockWriter := RequireRole(jwt.RoleStorekeeper, jwt.RolePharmacist)

	// Catálogo
	medicationHandler := NewMedicationHandler(deps.MedicationUC)
	medications := api.Group("/medications")
	medications.Get("/", medicationHandler.List)
	medications.Post("/", storekeeper, medicationHandler.Create)
	medications.Get("/:id", medicationHandler.Get)
	medications.Put("/:id", storekeeper, medicationHandler.Update)
	medications.Get("/:id/batches", medicationHandler.ListBatches)

	// Compras
	purchaseHandler := NewPurchaseHandler(deps.PurchaseUC, deps.DefaultLocation)
	orders := api.Group("/purchase-orders")
	orders.Post("/", storekeeper, purchaseHandler.CreateOrder)
	orders.Get("/:id", purchaseHandler.GetOrder)
	orders.Post("/:id/submit", storekeeper, purchaseHandler.SubmitOrder)
	orders.Post("/:id/approve", approver, purchaseHandler.ApproveOrder)
	orders.Post("/:id/reject", approver, purchaseHandler.RejectOrder)

	grns := api.Group("/grns")
	grns.Post("/", storekeeper, purchaseHandler.CreateGRN)
	grns.Get("/:id", purchaseHandler.GetGRN)
	grns.Post("/:id/submit", storekeeper, purchaseHandler.SubmitGRN)
	grns.Post("/:id/approve", approver, purchaseHandler.ApproveGRN)
	grns.Post("/:id/reject", approver, purchaseHandler.RejectGRN)

	// Reservas y despacho
	reservationHandler := NewReservationHandler(deps.AllocateUC, deps.DispenseUC)
	reservations := api.Group("/reservations")
	reservations.Post("/", pharmacist, reservationHandler.Allocate)
	reservations.Get("/:id", reservationHandler.GetReservation)
	reservations.Post("/:id/release", pharmacist, reservationHandler.Release)
	reservations.Post("/:id/dispense", pharmacist, reservationHandler.Dispense)
	api.Get("/dispenses/:id", reservationHandler.GetDispense)

	// Transferencias y devoluciones
	transferHandler := NewTransferHandler(deps.TransferUC)
	transfers := api.Group("/transfers")
	transfers.Post("/", storekeeper, transferHandler.Request)
	transfers.Get("/:id", transferHandler.Get)
	transfers.Post("/:id/approve", approver, transferHandler.Approve)
	transfers.Post("/:id/reject", approver, transferHandler.Reject)
	transfers.Post("/:id/complete", storekeeper, transferHandler.Complete)

	returns := api.Group("/returns")
	returns.Post("/", stockWriter, transferHandler.CreateReturn)
	returns.Get("/:id", transferHandler.GetReturn)

	// Lotes y auditoría
	auditHandler := NewAuditHandler(deps.AuditQuery)
	batches := api.Group("/batches")
	batches.Put("/:id/price", storekeeper, medicationHandler.Reprice)
	batches.Get("/:id/audit", auditHandler.BatchTrail)
	api.Get("/audit", auditHandler.Query)
}
