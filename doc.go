// Package taxlots tracks the tax lots of securities held in investment
// accounts and computes the tax consequences of selling them.
//
// A TaxLot is one acquisition tranche: a quantity of shares bought (or
// received) on one date for one total cost. Lots are grouped in a Position, one
// per security and account. The package provides:
//   - Lot selection: SelectForSale picks the lots a sale consumes, with one of
//     the LotSelection methods (FIFO, LIFO, HIFO, minimum or maximum gain,
//     specific identification, average cost).
//   - Dispositions: Dispose turns a selection into per-lot cost basis,
//     proceeds and realized gain, split between short and long term.
//   - Wash sales: WashSaleDetector finds the replacement lots acquired within
//     30 days of a loss sale.
//   - Corporate actions: CorporateActionProcessor applies splits, spin-offs,
//     mergers and symbol changes to every open lot of a security, atomically.
//
// Lots, positions and securities live behind the Repository interface; the
// memstore and sqlitestore packages implement it. Book ties everything together
// and is the entry point of the lots command.
//
// Amounts are exact decimals (Money, Quantity): rounding to the currency minor
// unit only happens when proceeds are allocated and when amounts are displayed.
package taxlots
