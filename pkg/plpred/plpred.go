package plpred

/**
* plpred is a golang library for estimating the results of football matches.
* It rates teams from historical results (venue-split attack and defence
* strengths plus an Elo ladder) and turns those ratings into calibrated
* scoreline and 1X2 probabilities via a Dixon-Coles adjusted Poisson grid.
 */
