// Package fusion owns the position/velocity state estimator.
//
// Responsibilities: fuse high-rate relative acceleration readings with
// low-rate absolute position readings into a single [px, py, vx, vy]
// estimate and its covariance, under a constant-velocity motion model and
// a position-only observation model.
// Key types: Estimator, Config, State, InertialReading, PositionReading.
//
// The estimator is single-threaded and holds no locks: callers serialise
// Predict/Update themselves. It performs no I/O, never sleeps and never
// logs; pacing and reporting belong to the driver.
//
// A failed Predict or Update leaves the estimate exactly as it was.
package fusion
