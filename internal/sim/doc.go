// Package sim generates synthetic ground truth and sensor readings for the
// fusion estimator: a figure-8 trajectory, a biased noisy inertial sensor and
// a noisy absolute position fix.
//
// Every simulator owns its random source and any drifting state, so two
// simulators seeded alike produce identical streams.
package sim
