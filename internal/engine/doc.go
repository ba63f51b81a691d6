// Package engine implements the compound catalog coordinator.
//
// A Coordinator owns a list of catalog specs, each paired with its own
// sink. Specs whose row source keys are equal form an equivalence class
// and share one source adapter, so every distinct query runs exactly once.
//
// Execution model:
//
//  1. Specs are partitioned into classes by key, in first-appearance order.
//  2. Each class runs as one task on a bounded worker pool. Classes share
//     no mutable state and may run in any order.
//  3. Within a class, chunks are processed strictly in sequence: chunk N+1
//     is not fetched until every catalog in the class has evaluated and
//     appended chunk N. Memory is bounded by chunk size times class size.
//  4. Every catalog in the class is evaluated before any sink is written,
//     so a failed chunk reaches no sink in the class.
//  5. A class failure never aborts sibling classes. Outcomes are collected
//     per class and returned as a Report.
//
// Cancellation is cooperative: the context is checked between chunks, a
// chunk that has started always finishes, and classes that did not run to
// completion report StatusCancelled.
package engine
