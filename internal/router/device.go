package router

import (
	"github.com/edcadet10/tikes/internal/handler"
	"github.com/edcadet10/tikes/internal/ledger"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/middleware"
	"github.com/edcadet10/tikes/internal/pos"

	"github.com/gin-gonic/gin"
)

// Device builds the register's local HTTP surface, served by syncd on the
// loopback interface. No auth layer: the only caller is the register UI on
// the same machine, and the server still authenticates every push with the
// device credentials.
func Device(svc *pos.Service, l *ledger.Ledger, store localstore.Store, sync handler.Syncer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())

	posH := handler.NewPosHandler(svc, l, store, sync)

	p := r.Group("/pos")
	{
		p.POST("/sales", posH.CreateSale)
		p.DELETE("/sales/:localId", posH.VoidSale)

		p.POST("/categories", posH.CreateCategory)
		p.POST("/products", posH.CreateProduct)
		p.GET("/products", posH.ListProducts)

		p.POST("/customers", posH.CreateCustomer)
		p.GET("/customers", posH.ListCustomers)
		p.GET("/customers/:localId/credit", posH.CreditHistory)
		p.POST("/customers/:localId/credit", posH.GiveCredit)
		p.POST("/customers/:localId/payments", posH.RecordPayment)
	}

	r.POST("/sync", posH.TriggerSync)

	return r
}
