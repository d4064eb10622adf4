package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ticket-checkout/entity"
	"ticket-checkout/zap"
)

type OrdersClient struct {
	client client
}

func NewOrdersClient(baseURL string) OrdersClient {
	return OrdersClient{
		client: newClient(baseURL),
	}
}

type requestOrderRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Quantity int    `json:"qty"`
}

type requestOrderResponse struct {
	PaymentRequest   string `json:"pr"`
	OrderReferenceID string `json:"orderReferenceId"`
}

func (c OrdersClient) RequestOrder(ctx context.Context, draft entity.OrderDraft) (entity.Order, error) {
	body := requestOrderRequest{
		FullName: draft.Customer.FullName,
		Email:    draft.Customer.Email,
		Quantity: draft.Quantity,
	}

	var res requestOrderResponse
	if err := c.client.postJSON(ctx, "/orders/request", body, &res); err != nil {
		return entity.Order{}, err
	}

	if res.OrderReferenceID == "" || res.PaymentRequest == "" {
		return entity.Order{}, errors.New("order response is missing the payment request or reference id")
	}

	return entity.Order{
		ReferenceID:    res.OrderReferenceID,
		PaymentRequest: res.PaymentRequest,
	}, nil
}

type claimPaymentRequest struct {
	FullName   string          `json:"fullname"`
	Email      string          `json:"email"`
	ZapReceipt json.RawMessage `json:"zapReceipt"`
}

type claimPaymentResponse struct {
	Claim bool `json:"claim"`
}

func (c OrdersClient) ClaimPayment(ctx context.Context, customer entity.CustomerData, confirmation entity.PaymentConfirmation) error {
	receipt, err := zap.Encode(confirmation)
	if err != nil {
		return fmt.Errorf("encoding zap receipt: %w", err)
	}

	body := claimPaymentRequest{
		FullName:   customer.FullName,
		Email:      customer.Email,
		ZapReceipt: receipt,
	}

	var res claimPaymentResponse
	if err := c.client.postJSON(ctx, "/orders/claim", body, &res); err != nil {
		return err
	}

	if !res.Claim {
		return errors.New("payment claim was rejected")
	}

	return nil
}
