package main

import (
	"fmt"
)

func main() {
	fmt.Println("site-work-simplifier-pro - Offline-First Estimate Sync Core")
	fmt.Println("===========================================================")
	fmt.Println()
	fmt.Println("Reconciles a device-local estimate collection with a remote store:")
	fmt.Println("write-through local saves, tombstoned deletes, a pending-sync queue")
	fmt.Println("and automatic resume when connectivity returns.")
	fmt.Println()

	fmt.Println("Packages:")
	fmt.Println()
	fmt.Println("  estimate/   Domain model: estimates, priced line items, material")
	fmt.Println("              catalog, totals invariant, validation")
	fmt.Println("  estsqlite/  SQLite device persistence: estimate store, tombstone")
	fmt.Println("              ledger, pending-sync queue, per-row epochs")
	fmt.Println("  estsync/    Reconciler, remote gateway (HTTP), connectivity")
	fmt.Println("              monitor, background sync loop")
	fmt.Println()

	fmt.Println("Example:")
	fmt.Println()
	fmt.Println("  examples/estserver/  Reference remote store: JSON HTTP API with")
	fmt.Println("                       JWT auth backed by Postgres")
	fmt.Println("                       Run: cd examples/estserver && go run .")
}
